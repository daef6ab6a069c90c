package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"meta-anchor/conf"

	"github.com/redis/go-redis/v9"
)

var (
	RedisClient *redis.Client
	cacheTTL    = 300 * time.Second
)

// ErrCacheMiss returned by GetCache when the key is absent or the cache is disabled
var ErrCacheMiss = redis.Nil

// InitRedis initialize Redis client
func InitRedis(ctx context.Context) error {
	if !conf.Cfg.Redis.Enabled {
		log.Println("Redis cache is disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", conf.Cfg.Redis.Host, conf.Cfg.Redis.Port),
		Password: conf.Cfg.Redis.Password,
		DB:       conf.Cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Failed to connect to Redis: %v", err)
		log.Println("Redis cache will be disabled")
		client.Close()
		return err
	}

	UseRedis(client, time.Duration(conf.Cfg.Redis.CacheTTL)*time.Second)
	log.Printf("✅ Redis connected successfully: %s:%d (DB: %d, TTL: %ds)",
		conf.Cfg.Redis.Host, conf.Cfg.Redis.Port, conf.Cfg.Redis.DB, conf.Cfg.Redis.CacheTTL)
	return nil
}

// UseRedis installs an already connected client
func UseRedis(client *redis.Client, ttl time.Duration) {
	RedisClient = client
	if ttl > 0 {
		cacheTTL = ttl
	}
}

// CloseRedis close Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		err := RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}

// IsRedisEnabled check if Redis is enabled and connected
func IsRedisEnabled() bool {
	return RedisClient != nil
}

// SetCache set cache with TTL
func SetCache(ctx context.Context, key string, value interface{}) error {
	if RedisClient == nil {
		return nil // Cache disabled, skip silently
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := RedisClient.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		log.Printf("⚠️  Failed to set cache for key %s: %v", key, err)
		return err
	}
	return nil
}

// GetCache get cache by key, ErrCacheMiss when absent
func GetCache(ctx context.Context, key string, dest interface{}) error {
	if RedisClient == nil {
		return ErrCacheMiss
	}

	data, err := RedisClient.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return nil
}

// RedisResultCache adapts the package cache to a keyed result cache
type RedisResultCache struct {
	Prefix string
}

// Get loads a cached value; ok is false on miss or when the cache is disabled
func (c RedisResultCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	err := GetCache(ctx, c.Prefix+key, dest)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value
func (c RedisResultCache) Set(ctx context.Context, key string, value interface{}) error {
	return SetCache(ctx, c.Prefix+key, value)
}
