package stats

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
)

// Middleware 统计中间件，记录每次分段请求
type Middleware struct {
	next     translation.SegmentTranslator
	manager  *Manager
	provider string
}

// NewMiddleware 创建统计中间件
func NewMiddleware(next translation.SegmentTranslator, manager *Manager, provider string) *Middleware {
	return &Middleware{
		next:     next,
		manager:  manager,
		provider: provider,
	}
}

// TranslateSegment 带统计的分段翻译
func (m *Middleware) TranslateSegment(ctx context.Context, lines []string) ([]string, error) {
	startTime := time.Now()
	out, err := m.next.TranslateSegment(ctx, lines)

	result := RequestResult{
		Success:   err == nil,
		Latency:   time.Since(startTime),
		Lines:     len(lines),
		CharsSent: countChars(lines),
	}
	if err != nil {
		result.ErrorKind = translation.KindOf(err).String()
	} else {
		result.CharsReceived = countChars(out)
	}
	m.manager.RecordRequest(m.provider, result)

	return out, err
}

func countChars(lines []string) int {
	n := 0
	for _, l := range lines {
		n += utf8.RuneCountInString(l)
	}
	return n
}
