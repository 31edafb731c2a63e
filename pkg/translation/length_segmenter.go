package translation

import (
	"context"
	"unicode/utf16"

	"go.uber.org/zap"
)

// DefaultSegmentSize 默认分段长度上限（UTF-16 码元）
const DefaultSegmentSize = 2000

// Segment 输入行的一个连续区间 [Start, End)
type Segment struct {
	Start int
	End   int
	Chars int // 换行拼接后的 UTF-16 码元数
}

// Len 行数
func (s Segment) Len() int {
	return s.End - s.Start
}

// Partition 按原顺序贪心打包分段
//
// 每段拼接后的长度（每行之间计一个换行符）不超过 maxLength。
// 长度按 UTF-16 码元计，与后端的上限口径一致，代理对计 2。
// 单行超过上限时单独成段并整行发送，不截断。
func Partition(lines []string, maxLength int) []Segment {
	if maxLength <= 0 {
		maxLength = DefaultSegmentSize
	}

	var segments []Segment
	cur := Segment{}
	for i, line := range lines {
		n := unitLen(line)
		if cur.Len() > 0 && cur.Chars+1+n > maxLength {
			segments = append(segments, cur)
			cur = Segment{}
		}
		if cur.Len() == 0 {
			cur = Segment{Start: i, End: i + 1, Chars: n}
			continue
		}
		cur.End = i + 1
		cur.Chars += 1 + n
	}
	if cur.Len() > 0 {
		segments = append(segments, cur)
	}
	return segments
}

func unitLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// LengthSegmenter 把批次拆成大小受限的分段，逐段顺序调用后端
type LengthSegmenter struct {
	maxLength int
	inner     SegmentTranslator
	progress  ProgressTracker
	logger    *zap.Logger
}

// NewLengthSegmenter 创建分段器
func NewLengthSegmenter(maxLength int, inner SegmentTranslator, progress ProgressTracker, logger *zap.Logger) *LengthSegmenter {
	if maxLength <= 0 {
		maxLength = DefaultSegmentSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LengthSegmenter{
		maxLength: maxLength,
		inner:     inner,
		progress:  progress,
		logger:    logger,
	}
}

// TranslateBatch 顺序翻译每个分段，任一分段失败即中止
func (s *LengthSegmenter) TranslateBatch(ctx context.Context, lines []string) ([]string, error) {
	segments := Partition(lines, s.maxLength)
	if s.progress != nil {
		s.progress.Start(len(segments))
	}

	out := make([]string, 0, len(lines))
	for i, seg := range segments {
		// 分段之间检查取消
		if err := ctx.Err(); err != nil {
			s.finish(err)
			return nil, err
		}

		info := SegmentInfo{
			Index: i,
			Total: len(segments),
			Start: seg.Start,
			Lines: seg.Len(),
			Chars: seg.Chars,
		}
		s.logger.Debug("translating segment",
			zap.Int("index", info.Index),
			zap.Int("total", info.Total),
			zap.Int("lines", info.Lines),
			zap.Int("chars", info.Chars))

		translated, err := s.inner.TranslateSegment(ctx, lines[seg.Start:seg.End])
		if err != nil {
			s.finish(err)
			return nil, err
		}
		if len(translated) != seg.Len() {
			err := NewLineCountError("", seg.Len(), len(translated))
			s.finish(err)
			return nil, err
		}

		out = append(out, translated...)
		if s.progress != nil {
			s.progress.Advance(info)
		}
	}

	s.finish(nil)
	return out, nil
}

func (s *LengthSegmenter) finish(err error) {
	if s.progress != nil {
		s.progress.Finish(err)
	}
}
