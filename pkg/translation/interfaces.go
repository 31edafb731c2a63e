package translation

import (
	"context"
)

// BatchTranslator 批量翻译，输出与输入行数一致
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, lines []string) ([]string, error)
}

// SegmentTranslator 单段翻译，一次调用对应一次后端请求
type SegmentTranslator interface {
	TranslateSegment(ctx context.Context, lines []string) ([]string, error)
}

// Stage 流水线阶段，负责一个关注点并把其余工作交给 next
type Stage interface {
	// Name 阶段名称
	Name() string

	// Process 处理一批行
	Process(ctx context.Context, lines []string, next BatchTranslator) ([]string, error)
}

// BatchFunc 函数适配为 BatchTranslator
type BatchFunc func(ctx context.Context, lines []string) ([]string, error)

// TranslateBatch 实现 BatchTranslator
func (f BatchFunc) TranslateBatch(ctx context.Context, lines []string) ([]string, error) {
	return f(ctx, lines)
}

// SegmentFunc 函数适配为 SegmentTranslator
type SegmentFunc func(ctx context.Context, lines []string) ([]string, error)

// TranslateSegment 实现 SegmentTranslator
func (f SegmentFunc) TranslateSegment(ctx context.Context, lines []string) ([]string, error) {
	return f(ctx, lines)
}

// SegmentInfo 分段信息
type SegmentInfo struct {
	Index int // 分段序号，从0开始
	Total int // 分段总数
	Start int // 首行在输入中的下标
	Lines int // 行数
	Chars int // 换行拼接后的字符数
}

// ProgressTracker 分段进度跟踪
type ProgressTracker interface {
	// Start 开始跟踪
	Start(total int)

	// Advance 一个分段完成
	Advance(info SegmentInfo)

	// Finish 结束，err 为 nil 表示全部成功
	Finish(err error)
}

// Cache 分段结果缓存
type Cache interface {
	// Get 获取缓存
	Get(ctx context.Context, key string) (string, bool, error)

	// Set 设置缓存
	Set(ctx context.Context, key string, value string) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Clear 清除所有缓存
	Clear(ctx context.Context) error

	// Stats 获取缓存统计信息
	Stats() CacheStats
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// RestoreMiss 术语还原失败：译文中找不到对应标记
type RestoreMiss struct {
	Line   int    // 行下标（相对于传入术语阶段的批次）
	Source string // 源术语
	Target string // 目标术语
	Marker string // 发送时使用的标记
}
