package translation

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig 请求频率限制
type RateLimitConfig struct {
	RequestsPerMinute int // 每分钟请求数，<=0 表示不限制
	Burst             int // 突发上限，默认1
}

// RateLimitedSegmentTranslator 在每次后端请求前等待令牌
type RateLimitedSegmentTranslator struct {
	next    SegmentTranslator
	limiter *rate.Limiter
}

// NewRateLimitedSegmentTranslator 创建限流装饰器；未配置频率时直接返回 next
func NewRateLimitedSegmentTranslator(next SegmentTranslator, cfg RateLimitConfig) SegmentTranslator {
	if cfg.RequestsPerMinute <= 0 {
		return next
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(cfg.RequestsPerMinute)
	return &RateLimitedSegmentTranslator{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

// TranslateSegment 等待令牌后调用下游
func (r *RateLimitedSegmentTranslator) TranslateSegment(ctx context.Context, lines []string) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.TranslateSegment(ctx, lines)
}
