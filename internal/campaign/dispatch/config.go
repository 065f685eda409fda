package dispatch

import (
	"time"

	"github.com/gymspot/gymspot/internal/config"
)

// Config bounds the campaign dispatch worker. QuotaPerHour is a global
// rolling-window limit across all campaigns, not a per-campaign one.
type Config struct {
	QuotaPerHour int
	BatchSize    int
	TickInterval time.Duration
	LeaseTTL     time.Duration
}

func (c Config) withDefaults() Config {
	if c.QuotaPerHour <= 0 {
		c.QuotaPerHour = 100
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = c.TickInterval
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		QuotaPerHour: cfg.Dispatch.QuotaPerHour,
		BatchSize:    cfg.Dispatch.BatchSize,
		TickInterval: cfg.Dispatch.TickInterval,
	}.withDefaults()
}
