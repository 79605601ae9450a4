package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/atrium/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(newRedisClient, NewTokenBucket, newLoginLimiter),
)

// newRedisClient returns nil when no address is configured; every
// consumer treats a nil client as "limiting disabled".
func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func newLoginLimiter(bucket *TokenBucket, cfg config.Config) *LoginLimiter {
	return NewLoginLimiter(bucket, cfg.LoginRateLimit, cfg.LoginBurst)
}
