package database

import (
	"github.com/go-redis/redis"
	"github.com/seslichat/sesli/internal/config"
)

// NewRedis returns a client for the history cache, or nil when no
// address is configured (caching is optional).
func NewRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Pass,
		DB:       0,
	})
}
