package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/scholarsphere/internal/app/controllers"
	appMigrations "github.com/yigit/scholarsphere/internal/app/migrations"
	appRepos "github.com/yigit/scholarsphere/internal/app/repositories"
	appRoutes "github.com/yigit/scholarsphere/internal/app/routes"
	appServices "github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/config"
	"github.com/yigit/scholarsphere/internal/db"
	appMiddleware "github.com/yigit/scholarsphere/internal/middleware"
	pkgAuth "github.com/yigit/scholarsphere/internal/pkg/auth"
	"github.com/yigit/scholarsphere/internal/pkg/email"
	"github.com/yigit/scholarsphere/internal/pkg/filestorage"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
	"github.com/yigit/scholarsphere/internal/pkg/websocket"
	"github.com/yigit/scholarsphere/internal/seed"
)

// DefaultConfigPath is used when no path is given
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService         *appServices.AuthService
	ScholarshipService  *appServices.ScholarshipService
	ApplicationService  *appServices.ApplicationService
	ReviewService       *appServices.ReviewService
	NotificationService *appServices.NotificationService
	AnalyticsService    *appServices.AnalyticsService

	Controllers appRoutes.Controllers

	AuthMiddleware *appMiddleware.AuthMiddleware
	Limiter        appMiddleware.Limiter
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	Hub            *websocket.Hub
	MessageHandler *websocket.MessageHandler
	Redis          *redis.Client
	FileStorage    *filestorage.LocalStorage
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	host, _ := os.Hostname()
	lgr := logger.Configure(logger.Config{
		Level:        strings.ToLower(cfg.Logging.Level),
		Pretty:       strings.EqualFold(cfg.Logging.Format, "text"),
		Service:      "scholarsphere",
		RollbarToken: cfg.Logging.RollbarToken,
		Environment:  cfg.Logging.Environment,
		ServerHost:   host,
	})
	lgr.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("logFormat", cfg.Logging.Format).
		Bool("rollbar", cfg.Logging.RollbarToken != "").
		Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase opens the pgx pool.
func ConnectDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// RunMigrations applies the SQL files in the configured migrations directory.
func RunMigrations(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	applied, err := appMigrations.NewMigrator(database.Pool, lgr).MigrateFromDirectory(ctx, migrationsDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return nil
}

// SetupDatabase connects, migrates and seeds the database.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	database, err := ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, cfg, database, lgr); err != nil {
		database.Close()
		return nil, err
	}

	if err := seed.CreateDefaultData(ctx, appRepos.NewRepositories(database.Pool), lgr); err != nil {
		// Seed problems do not stop the server
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}
	return database, nil
}

// newLimiter prefers Redis so limits hold across instances, falling back to process memory.
func newLimiter(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appMiddleware.Limiter, *redis.Client) {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured, using in-memory rate limiter")
		return appMiddleware.NewMemoryLimiter(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, using in-memory rate limiter")
		_ = client.Close()
		return appMiddleware.NewMemoryLimiter(), nil
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis rate limiter")
	return appMiddleware.NewRedisLimiter(client), client
}

// NewMailer builds the configured e-mail provider.
func NewMailer(cfg *config.Config) email.Mailer {
	return email.New(email.Config{
		Provider:       strings.ToLower(cfg.Email.Provider),
		Host:           cfg.Email.Host,
		Port:           cfg.Email.Port,
		Username:       cfg.Email.Username,
		Password:       cfg.Email.Password,
		UseTLS:         cfg.Email.UseTLS,
		FromName:       cfg.Email.FromName,
		FromEmail:      cfg.Email.FromEmail,
		SendGridAPIKey: cfg.Email.SendgridAPIKey,
		BaseURL:        cfg.Server.BaseURL,
	}, logger.Component("email"))
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database.Pool)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	mailer := NewMailer(cfg)

	deps.Hub = websocket.NewHub(logger.Component("websocket"))

	repos := deps.Repos
	deps.NotificationService = appServices.NewNotificationService(
		repos.NotificationRepository,
		repos.UserRepository,
		repos.ScholarshipRepository,
		deps.Hub,
		mailer,
		cfg.Server.BaseURL,
		logger.Component("notifications"),
	)
	deps.MessageHandler = websocket.NewMessageHandler(deps.Hub, deps.NotificationService, logger.Component("websocket"))

	deps.AuthService = appServices.NewAuthService(
		repos.UserRepository,
		repos.TokenRepository,
		deps.JWTService,
		database,
		logger.Component("auth"),
	)
	deps.ScholarshipService = appServices.NewScholarshipService(
		repos.ScholarshipRepository,
		repos.ApplicationRepository,
		repos.DocumentRepository,
		database,
		deps.NotificationService,
		logger.Component("scholarships"),
	)
	deps.ApplicationService = appServices.NewApplicationService(
		repos.ApplicationRepository,
		repos.ScholarshipRepository,
		repos.DocumentRepository,
		repos.UserRepository,
		deps.FileStorage,
		database,
		deps.NotificationService,
		logger.Component("applications"),
	)
	deps.ReviewService = appServices.NewReviewService(
		repos.ApplicationRepository,
		repos.ScholarshipRepository,
		repos.DocumentRepository,
		repos.UserRepository,
		database,
		deps.NotificationService,
		logger.Component("review"),
	)
	deps.AnalyticsService = appServices.NewAnalyticsService(
		repos.UserRepository,
		repos.ScholarshipRepository,
		repos.ApplicationRepository,
		repos.NotificationRepository,
		logger.Component("analytics"),
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.Limiter, deps.Redis = newLimiter(ctx, cfg, lgr)

	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, lgr),
		Scholarship:  appControllers.NewScholarshipController(deps.ScholarshipService, lgr),
		Application:  appControllers.NewApplicationController(deps.ApplicationService, cfg.Workflow.MaxUploadMB, lgr),
		Review:       appControllers.NewReviewController(deps.ReviewService, lgr),
		Notification: appControllers.NewNotificationController(deps.NotificationService),
		Analytics:    appControllers.NewAnalyticsController(deps.AnalyticsService),
		WebSocket:    websocket.NewHandler(deps.Hub, logger.Component("websocket"), cfg.Origins()...),
	}

	return deps, nil
}

// Start runs the background goroutines until ctx is cancelled.
func (d *Dependencies) Start(ctx context.Context) {
	go d.Hub.Run(ctx)
	go d.MessageHandler.Run(ctx)
}

// Close releases the Redis client.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupSwagger(router, cfg.Server.BaseURL)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, appRoutes.RateLimits{
		Limiter:    deps.Limiter,
		AuthLimit:  cfg.Redis.AuthRateLimit,
		ApplyLimit: cfg.Redis.ApplyRateLimit,
		Window:     helpers.ParseDuration(cfg.Redis.RateWindow, time.Minute),
	})

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
