package config

import "time"

// CalendarCacheConfig defines settings for the reserved-days cache.  When
// Enabled is false or no Redis client is configured, every lookup goes to
// the database.  TTL bounds how long a calendar may be served after a
// change whose invalidation was lost.
type CalendarCacheConfig struct {
	Enabled bool          `env:"CALENDAR_CACHE_ENABLED" envDefault:"true"`
	TTL     time.Duration `env:"CALENDAR_CACHE_TTL" envDefault:"30s"`
	Prefix  string        `env:"CALENDAR_CACHE_PREFIX" envDefault:"calendar"`
}
