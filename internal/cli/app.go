package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/nerdneilsfield/go-novel-mt/internal/config"
	"github.com/nerdneilsfield/go-novel-mt/pkg/providers"
	"github.com/nerdneilsfield/go-novel-mt/pkg/providers/baidu"
	"github.com/nerdneilsfield/go-novel-mt/pkg/providers/retry"
	"github.com/nerdneilsfield/go-novel-mt/pkg/providers/stats"
	"github.com/nerdneilsfield/go-novel-mt/pkg/providers/youdao"
	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"go.uber.org/zap"
)

// app 一次命令运行所需的组件
type app struct {
	registry *providers.Registry
	provider providers.Provider
	segment  translation.SegmentTranslator
	cache    translation.Cache
	stats    *stats.Manager
	logger   *zap.Logger
	closers  []func() error
}

// newApp 按配置组装后端与分段装饰器
//
// 装饰顺序（由外到内）：缓存 -> 限流 -> 统计 -> 后端，缓存命中不占用限流额度。
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	registry, err := newRegistry(cfg, log)
	if err != nil {
		return nil, err
	}
	provider, err := registry.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}

	a := &app{
		registry: registry,
		provider: provider,
		stats:    stats.NewManager(cfg.StatsPath, log),
		logger:   log,
	}
	if err := a.stats.Load(); err != nil {
		log.Warn("failed to load stats", zap.Error(err))
	}

	var segment translation.SegmentTranslator = stats.NewMiddleware(provider, a.stats, provider.Name())
	segment = translation.NewRateLimitedSegmentTranslator(segment, translation.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})

	cache, err := a.newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		caps := provider.Capabilities()
		namespace := fmt.Sprintf("%s:%s:%s", provider.Name(), caps.SourceLanguage, caps.TargetLanguage)
		segment = translation.NewCachedSegmentTranslator(segment, cache, namespace, log)
		a.cache = cache
	}
	a.segment = segment

	return a, nil
}

func newRegistry(cfg *config.Config, log *zap.Logger) (*providers.Registry, error) {
	base := providers.DefaultConfig()
	base.Timeout = cfg.Timeout()
	base.ProxyURL = cfg.ProxyURL
	base.Retry = retry.RetryConfig{
		MaxRetries:    cfg.Retry.MaxRetries,
		InitialDelay:  time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond,
		MaxDelay:      time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		BackoffFactor: cfg.Retry.BackoffFactor,
	}

	baiduClient, err := baidu.New(baidu.Config{
		BaseConfig: base,
		BaseURL:    cfg.Baidu.BaseURL,
		From:       cfg.Baidu.From,
		To:         cfg.Baidu.To,
	}, log)
	if err != nil {
		return nil, err
	}

	youdaoClient, err := youdao.New(youdao.Config{
		BaseConfig: base,
		DictURL:    cfg.Youdao.DictURL,
		RlogURL:    cfg.Youdao.RlogURL,
		From:       cfg.Youdao.From,
		To:         cfg.Youdao.To,
		DefaultKey: cfg.Youdao.DefaultKey,
		SkipRlog:   cfg.Youdao.SkipRlog,
	}, log)
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry()
	for _, p := range []providers.Provider{baiduClient, youdaoClient} {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (a *app) newCache(ctx context.Context, cfg config.CacheConfig) (translation.Cache, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return translation.NewMemoryCache(cfg.TTL), nil
	case "file":
		cache, err := translation.NewFileCache(cfg.Dir, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return cache, nil
	case "redis":
		cache, err := translation.NewRedisCache(ctx, translation.RedisConfig{
			URL:       cfg.RedisURL,
			TTL:       cfg.TTL,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cache.Close)
		return cache, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// SaveStats 保存后端统计
func (a *app) SaveStats() {
	if err := a.stats.Save(); err != nil {
		a.logger.Warn("failed to save stats", zap.Error(err))
	}
}

// Close 释放资源
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Debug("close failed", zap.Error(err))
		}
	}
}
