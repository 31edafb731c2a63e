package translation

import (
	"github.com/nerdneilsfield/go-novel-mt/pkg/glossary"
	"go.uber.org/zap"
)

// Option 流水线配置选项函数
type Option func(*pipelineOptions)

// pipelineOptions 流水线内部选项
type pipelineOptions struct {
	provider     string
	glossary     *glossary.Glossary
	markerPolicy MarkerPolicy
	markers      MarkerConfig
	segmentSize  int
	progress     ProgressTracker
	onMiss       func(RestoreMiss)
	logger       *zap.Logger
}

// WithProvider 设置后端名称（用于日志）
func WithProvider(name string) Option {
	return func(o *pipelineOptions) {
		o.provider = name
	}
}

// WithGlossary 设置术语表
func WithGlossary(g *glossary.Glossary) Option {
	return func(o *pipelineOptions) {
		o.glossary = g
	}
}

// WithMarkerPolicy 设置术语标记策略
func WithMarkerPolicy(policy MarkerPolicy) Option {
	return func(o *pipelineOptions) {
		o.markerPolicy = policy
	}
}

// WithMarkerConfig 设置占位符格式（仅 MarkerToken 策略使用）
func WithMarkerConfig(markers MarkerConfig) Option {
	return func(o *pipelineOptions) {
		o.markers = markers
	}
}

// WithSegmentSize 设置分段字符上限
func WithSegmentSize(size int) Option {
	return func(o *pipelineOptions) {
		o.segmentSize = size
	}
}

// WithProgressTracker 设置进度跟踪器
func WithProgressTracker(tracker ProgressTracker) Option {
	return func(o *pipelineOptions) {
		o.progress = tracker
	}
}

// WithRestoreMissHandler 设置术语还原失败回调
func WithRestoreMissHandler(fn func(RestoreMiss)) Option {
	return func(o *pipelineOptions) {
		o.onMiss = fn
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}
