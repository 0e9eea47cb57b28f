// Package config handles application configuration via environment variables
// and named sections of on-disk config files
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"quakeingest/internal/platform/logger"
)

// DateLayout is the calendar date format accepted by MayDate
const DateLayout = time.DateOnly

// Conf is a namespaced view over environment variables (e.g., "CORE_BACKFILL_", "PG_")
// Use New() for global access, or Prefix("PG_") for module scopes.
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix creates a child Conf with an additional prefix, e.g. cfg.Prefix("CORE_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// key composes the fully-qualified env var name
func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayInt(key string, def int) int {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Int("default", def).Msg("invalid int; using default")
	return def
}

// MayBool returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayBool(key string, def bool) bool {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Bool("default", def).Msg("invalid bool; using default")
	return def
}

// MayDuration returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
	return def
}

// MayDate parses a YYYY-MM-DD value as midnight UTC; def if missing/empty or invalid
func (c Conf) MayDate(key string, def time.Time) time.Time {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseInLocation(DateLayout, s, time.UTC); err == nil {
		return d
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Str("default", def.Format(DateLayout)).
		Msg("invalid date (want YYYY-MM-DD); using default")
	return def
}

// MayLocation loads an IANA zone name ("UTC", "America/Los_Angeles", "Local"); def if missing/empty or unknown
func (c Conf) MayLocation(key string, def *time.Location) *time.Location {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if loc, err := time.LoadLocation(s); err == nil {
		return loc
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Str("default", def.String()).Msg("unknown time zone; using default")
	return def
}

// MayURL returns the value when it is an absolute URL, def when missing/empty; panics if invalid
func (c Conf) MayURL(key, def string) string {
	s := c.MayString(key, def)
	if s == "" {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		logger.Get().Panic().Str("key", c.key(key)).Str("value", s).Msg("invalid absolute URL")
	}
	return s
}
