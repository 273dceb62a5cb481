package cache

import (
	"context"
	"fmt"
	"time"

	"tripfluence-api/core/constants"
	"tripfluence-api/core/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

type CacheConfig struct {
	Addr     string
	Password string
	DB       int
}

func InitCache(config CacheConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis initialized successfully", "addr", config.Addr)
	return &Cache{client: client}, nil
}

// AcquireSpaceLock takes a short-lived advisory lock for one space so
// concurrent request creation against the same space serializes before the
// transactional conflict check. Returns false when another holder owns it.
func (c *Cache) AcquireSpaceLock(ctx context.Context, spaceID uuid.UUID) (bool, error) {
	key := constants.RedisKeySpaceLock + spaceID.String()
	ok, err := c.client.SetNX(ctx, key, "1", constants.SpaceLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire space lock: %w", err)
	}
	return ok, nil
}

func (c *Cache) ReleaseSpaceLock(ctx context.Context, spaceID uuid.UUID) {
	key := constants.RedisKeySpaceLock + spaceID.String()
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logger.Warn("Cache:ReleaseSpaceLock:Error", "error", err, "space_id", spaceID)
	}
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Cache) Close() error {
	return c.client.Close()
}
