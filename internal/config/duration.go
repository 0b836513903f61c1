package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

// parseDuration розбирає рядок тривалості або повертає fallback з попередженням
func parseDuration(name, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logrus.WithFields(logrus.Fields{
			"field":   name,
			"value":   value,
			"default": fallback.String(),
		}).Warn("Invalid duration, using default")
		return fallback
	}
	return d
}

// Timeouts розібрані тривалості конфігурації
type Timeouts struct {
	Read, Write, Idle, Shutdown time.Duration
	Provider, Backend           time.Duration
	CookieMaxAge                time.Duration
	RefreshBuffer               time.Duration
	RefreshRetryDelay           time.Duration
}

// Timeouts повертає всі тривалості з дефолтами для незаданих або невалідних значень
func (c *Config) Timeouts() Timeouts {
	return Timeouts{
		Read:              parseDuration("server.read_timeout", c.Server.ReadTimeout, 30*time.Second),
		Write:             parseDuration("server.write_timeout", c.Server.WriteTimeout, 30*time.Second),
		Idle:              parseDuration("server.idle_timeout", c.Server.IdleTimeout, 120*time.Second),
		Shutdown:          parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, 5*time.Second),
		Provider:          parseDuration("oidc.provider.request_timeout", c.OIDC.Provider.RequestTimeout, 30*time.Second),
		Backend:           parseDuration("backend.timeout", c.Backend.Timeout, 10*time.Second),
		CookieMaxAge:      parseDuration("session.cookie_max_age", c.Session.CookieMaxAge, 7*24*time.Hour),
		RefreshBuffer:     parseDuration("session.refresh_buffer", c.Session.RefreshBuffer, 5*time.Minute),
		RefreshRetryDelay: parseDuration("session.refresh_retry_delay", c.Session.RefreshRetryDelay, 200*time.Millisecond),
	}
}
