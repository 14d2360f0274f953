package redis

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	redisHost := cfg.Redis.RedisAddr

	if redisHost == "" {
		redisHost = ":6379"
	}

	opts := &redis.Options{
		Addr:         redisHost,
		Password:     cfg.Redis.RedisPassword,
		DB:           cfg.Redis.DB,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PoolSize:     cfg.Redis.PoolSize,
		PoolTimeout:  time.Duration(cfg.Redis.PoolTimeout) * time.Second,
	}
	if cfg.Redis.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", redisHost)
	}
	return client, nil
}

// NeedsRedis reports whether any configured component talks to redis.
func NeedsRedis(cfg *config.Config) bool {
	return cfg.Broker.Driver == "redis" || cfg.Repository.Driver == "redis"
}
