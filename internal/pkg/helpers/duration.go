package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses s or returns fallback. Config validation runs first,
// so a bad value here means an optional setting was left empty.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		log.Warn().Err(err).Str("value", s).Dur("fallback", fallback).Msg("Invalid duration, using fallback")
		return fallback
	}
	return d
}
