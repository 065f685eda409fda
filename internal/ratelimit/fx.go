package ratelimit

import (
	"github.com/gymspot/gymspot/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(ProvideRedis),
	fx.Provide(NewLocker),
)

// ProvideRedis returns nil when no address is configured; the Locker
// constructor tolerates that and callers fall back to single-instance
// operation.
func ProvideRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
