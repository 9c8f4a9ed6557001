package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL     string `yaml:"base_url" env:"SERVER_BASE_URL"`
		StoragePath string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		// comma separated, empty accepts any websocket origin
		AllowedOrigins string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level        string `yaml:"level" env:"LOG_LEVEL"`
		Format       string `yaml:"format" env:"LOG_FORMAT"`
		RollbarToken string `yaml:"rollbar_token" env:"ROLLBAR_TOKEN"`
		Environment  string `yaml:"environment" env:"APP_ENV"`
	} `yaml:"logging"`

	Email struct {
		Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"` // log, smtp or sendgrid
		Host           string `yaml:"host" env:"SMTP_HOST"`
		Port           int    `yaml:"port" env:"SMTP_PORT"`
		Username       string `yaml:"username" env:"SMTP_USERNAME"`
		Password       string `yaml:"password" env:"SMTP_PASSWORD"`
		UseTLS         bool   `yaml:"use_tls" env:"SMTP_USE_TLS"`
		FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		FromEmail      string `yaml:"from_email" env:"EMAIL_FROM_ADDRESS"`
		SendgridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	} `yaml:"email"`

	Redis struct {
		Addr           string `yaml:"addr" env:"REDIS_ADDR"`
		Password       string `yaml:"password" env:"REDIS_PASSWORD"`
		DB             int    `yaml:"db" env:"REDIS_DB"`
		AuthRateLimit  int    `yaml:"auth_rate_limit" env:"REDIS_AUTH_RATE_LIMIT"`
		ApplyRateLimit int    `yaml:"apply_rate_limit" env:"REDIS_APPLY_RATE_LIMIT"`
		RateWindow     string `yaml:"rate_window" env:"REDIS_RATE_WINDOW"`
	} `yaml:"redis"`

	Workflow struct {
		ReminderDays              int `yaml:"reminder_days" env:"WORKFLOW_REMINDER_DAYS"`
		NotificationRetentionDays int `yaml:"notification_retention_days" env:"WORKFLOW_NOTIFICATION_RETENTION_DAYS"`
		MaxUploadMB               int `yaml:"max_upload_mb" env:"WORKFLOW_MAX_UPLOAD_MB"`
	} `yaml:"workflow"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := applyEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.StoragePath = "uploads"

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "scholarsphere"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "scholarsphere.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Environment = "development"

	config.Email.Provider = "log"
	config.Email.Port = 587
	config.Email.FromName = "OSAS Scholarship Office"
	config.Email.FromEmail = "no-reply@scholarsphere.app"

	config.Redis.AuthRateLimit = 10
	config.Redis.ApplyRateLimit = 5
	config.Redis.RateWindow = "1m"

	config.Workflow.ReminderDays = 3
	config.Workflow.NotificationRetentionDays = 30
	config.Workflow.MaxUploadMB = 10
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.ParseDuration(config.JWT.RefreshTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT refresh token expiration format: %w", err)
	}

	switch strings.ToLower(config.Email.Provider) {
	case "log", "smtp", "sendgrid":
	default:
		return fmt.Errorf("unknown email provider %q", config.Email.Provider)
	}

	if strings.EqualFold(config.Email.Provider, "sendgrid") && config.Email.SendgridAPIKey == "" {
		return fmt.Errorf("sendgrid api key is required when email provider is sendgrid")
	}

	if config.Redis.Addr != "" {
		if _, err := time.ParseDuration(config.Redis.RateWindow); err != nil {
			return fmt.Errorf("invalid redis rate window: %w", err)
		}
	}

	if config.Workflow.MaxUploadMB <= 0 {
		return fmt.Errorf("workflow max upload size must be positive")
	}

	return nil
}

// Origins splits Server.AllowedOrigins
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
