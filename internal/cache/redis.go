// Package cache stores detection results in Redis. Detection is
// deterministic for a trial and configuration, so results are cached under
// a key derived from both.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"visme-go/internal/config"
	"visme-go/internal/models"
)

const keyPrefix = "visme:result:"

// ResultCache caches DetectionResults in Redis.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and checks the connection.
func New(ctx context.Context, conf config.RedisConfig) (*ResultCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		DB:           conf.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewWithClient(rdb, conf.TTL), nil
}

func NewWithClient(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// Key identifies the result of running kind on a trial with cfg.
func Key(trialID string, kind models.DetectionKind, cfg models.FilterConfiguration) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("hash filter configuration: %w", err)
	}
	sum := sha256.Sum256(data)
	return keyPrefix + trialID + ":" + string(kind) + ":" + hex.EncodeToString(sum[:12]), nil
}

// Get returns the cached result for key. A miss is not an error.
func (c *ResultCache) Get(ctx context.Context, key string) (*models.DetectionResult, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var res models.DetectionResult
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &res, true, nil
}

// Set stores a result under key.
func (c *ResultCache) Set(ctx context.Context, key string, res *models.DetectionResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateTrial removes every cached result of a trial.
func (c *ResultCache) InvalidateTrial(ctx context.Context, trialID string) error {
	keys, err := c.client.Keys(ctx, keyPrefix+trialID+":*").Result()
	if err != nil {
		return fmt.Errorf("redis keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *ResultCache) Close() error {
	return c.client.Close()
}
