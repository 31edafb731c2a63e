package translation

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache 内存缓存实现
type MemoryCache struct {
	data  map[string]cacheEntry
	ttl   time.Duration
	mutex sync.Mutex
	stats CacheStats
}

// cacheEntry 缓存条目
type cacheEntry struct {
	Value     string        `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl,omitempty"`
}

func (e cacheEntry) expired() bool {
	return e.TTL > 0 && time.Since(e.Timestamp) > e.TTL
}

// NewMemoryCache 创建内存缓存，ttl 为0表示不过期
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data: make(map[string]cacheEntry),
		ttl:  ttl,
	}
}

// Get 获取缓存
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.data[key]
	if !exists {
		c.stats.Misses++
		return "", false, nil
	}
	if entry.expired() {
		delete(c.data, key)
		c.stats.Size = int64(len(c.data))
		c.stats.Misses++
		return "", false, nil
	}

	c.stats.Hits++
	return entry.Value, true, nil
}

// Set 设置缓存
func (c *MemoryCache) Set(_ context.Context, key string, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheEntry{
		Value:     value,
		Timestamp: time.Now(),
		TTL:       c.ttl,
	}
	c.stats.Size = int64(len(c.data))
	return nil
}

// Delete 删除缓存
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	c.stats.Size = int64(len(c.data))
	return nil
}

// Clear 清除所有缓存
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheEntry)
	c.stats = CacheStats{}
	return nil
}

// Stats 获取缓存统计信息
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.stats
}

// FileCache 文件缓存实现，每个键一个 .cache 文件
type FileCache struct {
	basePath string
	ttl      time.Duration
	memory   *MemoryCache // 二级缓存
	stats    CacheStats
	mutex    sync.Mutex
}

// NewFileCache 创建文件缓存
func NewFileCache(basePath string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	return &FileCache{
		basePath: basePath,
		ttl:      ttl,
		memory:   NewMemoryCache(ttl),
	}, nil
}

// getFilePath 获取缓存文件路径
func (c *FileCache) getFilePath(key string) string {
	return filepath.Join(c.basePath, fmt.Sprintf("%x.cache", md5.Sum([]byte(key))))
}

func (c *FileCache) count(hit bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// Get 获取缓存
func (c *FileCache) Get(ctx context.Context, key string) (string, bool, error) {
	if value, ok, _ := c.memory.Get(ctx, key); ok {
		c.count(true)
		return value, true, nil
	}

	filePath := c.getFilePath(key)
	data, err := os.ReadFile(filePath)
	if err != nil {
		c.count(false)
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.count(false)
		return "", false, nil
	}
	if entry.expired() {
		_ = os.Remove(filePath)
		c.count(false)
		return "", false, nil
	}

	_ = c.memory.Set(ctx, key, entry.Value)
	c.count(true)
	return entry.Value, true, nil
}

// Set 设置缓存
func (c *FileCache) Set(ctx context.Context, key string, value string) error {
	if err := c.memory.Set(ctx, key, value); err != nil {
		return err
	}

	data, err := json.Marshal(cacheEntry{
		Value:     value,
		Timestamp: time.Now(),
		TTL:       c.ttl,
	})
	if err != nil {
		return err
	}

	filePath := c.getFilePath(key)
	_, statErr := os.Stat(filePath)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return err
	}
	if os.IsNotExist(statErr) {
		c.mutex.Lock()
		c.stats.Size++
		c.mutex.Unlock()
	}
	return nil
}

// Delete 删除缓存
func (c *FileCache) Delete(ctx context.Context, key string) error {
	_ = c.memory.Delete(ctx, key)

	err := os.Remove(c.getFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err == nil {
		c.mutex.Lock()
		c.stats.Size--
		c.mutex.Unlock()
	}
	return nil
}

// Clear 清除所有缓存
func (c *FileCache) Clear(ctx context.Context) error {
	_ = c.memory.Clear(ctx)

	files, err := filepath.Glob(filepath.Join(c.basePath, "*.cache"))
	if err != nil {
		return err
	}
	for _, file := range files {
		_ = os.Remove(file)
	}

	c.mutex.Lock()
	c.stats = CacheStats{}
	c.mutex.Unlock()
	return nil
}

// Stats 获取缓存统计信息
func (c *FileCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// CachedSegmentTranslator 分段结果缓存装饰器，只缓存成功的结果
type CachedSegmentTranslator struct {
	next      SegmentTranslator
	cache     Cache
	namespace string
	logger    *zap.Logger
}

// NewCachedSegmentTranslator 创建缓存装饰器，namespace 通常为后端名称加语言对
func NewCachedSegmentTranslator(next SegmentTranslator, cache Cache, namespace string, logger *zap.Logger) *CachedSegmentTranslator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSegmentTranslator{
		next:      next,
		cache:     cache,
		namespace: namespace,
		logger:    logger,
	}
}

// CacheKey 计算分段缓存键
func CacheKey(namespace string, lines []string) string {
	sum := md5.Sum([]byte(namespace + "\x00" + strings.Join(lines, "\n")))
	return fmt.Sprintf("%x", sum)
}

// TranslateSegment 先查缓存，未命中时调用下游并回写
func (c *CachedSegmentTranslator) TranslateSegment(ctx context.Context, lines []string) ([]string, error) {
	key := CacheKey(c.namespace, lines)

	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		// 缓存故障不影响翻译
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var cached []string
		if err := json.Unmarshal([]byte(value), &cached); err == nil && len(cached) == len(lines) {
			c.logger.Debug("segment cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	translated, err := c.next.TranslateSegment(ctx, lines)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(translated)
	if err == nil {
		if err := c.cache.Set(ctx, key, string(data)); err != nil {
			c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return translated, nil
}
