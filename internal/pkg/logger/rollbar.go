package logger

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
)

// RollbarHook forwards warn and higher events to Rollbar.
type RollbarHook struct {
	report func(level zerolog.Level, msg string)
}

// NewRollbarHook configures the global rollbar client and returns a hook using it.
func NewRollbarHook(token, environment, host string) *RollbarHook {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	if host != "" {
		rollbar.SetServerHost(host)
	}
	return &RollbarHook{report: sendToRollbar}
}

// Run implements zerolog.Hook
func (h *RollbarHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.WarnLevel || msg == "" {
		return
	}
	h.report(level, msg)
}

func sendToRollbar(level zerolog.Level, msg string) {
	switch level {
	case zerolog.WarnLevel:
		rollbar.Warning(msg)
	case zerolog.ErrorLevel:
		rollbar.Error(msg)
	default:
		rollbar.Critical(msg)
	}
}

// Flush blocks until queued rollbar items are sent.
func Flush() {
	rollbar.Wait()
}
