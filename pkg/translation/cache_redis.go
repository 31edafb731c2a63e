package translation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache Redis 分段缓存
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	stats     CacheStats
	mutex     sync.Mutex
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	URL       string        // 连接地址，如 redis://localhost:6379/0
	TTL       time.Duration // 0 表示不过期
	KeyPrefix string        // 键前缀，默认 "novelmt:"
}

// NewRedisCache 连接 Redis 并检查可用性
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisCacheFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisCacheFromClient 使用已有的客户端
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "novelmt:"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get 获取缓存
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if errors.Is(err, redis.Nil) {
		c.stats.Misses++
		return "", false, nil
	}
	if err != nil {
		c.stats.Misses++
		return "", false, err
	}
	c.stats.Hits++
	return val, true, nil
}

// Set 设置缓存
func (c *RedisCache) Set(ctx context.Context, key string, value string) error {
	return c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err()
}

// Delete 删除缓存
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}

// Clear 删除所有带前缀的键
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}

	c.mutex.Lock()
	c.stats = CacheStats{}
	c.mutex.Unlock()
	return nil
}

// Stats 获取缓存统计信息（仅本进程的命中情况）
func (c *RedisCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}
