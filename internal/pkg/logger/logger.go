// Package logger owns the process-wide zerolog logger. Packages that are not
// handed a logger use the helpers here; services get a Component logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var base zerolog.Logger

// Config selects level, format and the optional Rollbar sink
type Config struct {
	Level  string // zerolog level name, unknown names fall back to info
	Pretty bool
	Output io.Writer

	Service      string
	RollbarToken string
	Environment  string
	ServerHost   string
}

// Configure replaces the global logger and returns it
func Configure(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	base = ctx.Logger()
	if cfg.RollbarToken != "" {
		base = base.Hook(NewRollbarHook(cfg.RollbarToken, cfg.Environment, cfg.ServerHost))
	}
	log.Logger = base
	return base
}

// Component returns a child logger tagged with a component name
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return base.Debug() }
func Info() *zerolog.Event  { return base.Info() }
func Warn() *zerolog.Event  { return base.Warn() }
func Error() *zerolog.Event { return base.Error() }

func init() {
	Configure(Config{Level: "info", Pretty: true})
}
