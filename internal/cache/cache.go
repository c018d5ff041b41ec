package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiranshivaraju/mediaqueue/pkg/models"
	"github.com/redis/go-redis/v9"
)

// MetadataTTL is how long a file's metadata stays cached after a read.
const MetadataTTL = 10 * time.Minute

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	SetFileMetadata(ctx context.Context, meta *models.FileMetadata, ttl time.Duration) error
	GetFileMetadata(ctx context.Context, fileID int64) (*models.FileMetadata, bool, error)
	InvalidateFileMetadata(ctx context.Context, fileID int64) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) SetFileMetadata(ctx context.Context, meta *models.FileMetadata, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal file metadata: %w", err)
	}
	return c.client.Set(ctx, MetadataKey(meta.FileID), data, ttl).Err()
}

func (c *RedisCache) GetFileMetadata(ctx context.Context, fileID int64) (*models.FileMetadata, bool, error) {
	val, err := c.client.Get(ctx, MetadataKey(fileID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var meta models.FileMetadata
	if err := json.Unmarshal(val, &meta); err != nil {
		return nil, false, fmt.Errorf("unmarshal file metadata: %w", err)
	}
	return &meta, true, nil
}

func (c *RedisCache) InvalidateFileMetadata(ctx context.Context, fileID int64) error {
	return c.client.Del(ctx, MetadataKey(fileID)).Err()
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
