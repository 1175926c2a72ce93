package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lukewen/studyblog/config"
)

var redisClient *redis.Client

// InitRedis connects the optional cache client. When the cache is disabled in
// configuration the client stays nil and all cache helpers become no-ops.
func InitRedis(cfg config.AppConfig) {
	if !cfg.RedisEnabled {
		return
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil && Sugar != nil {
		Sugar.Warnf("redis ping failed, cache degraded: %v", err)
	}
}

// GetRedis returns the cache client, or nil when caching is disabled.
func GetRedis() *redis.Client {
	return redisClient
}
