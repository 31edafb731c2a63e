package translation_test

import (
	"context"
	"strings"
	"sync"

	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
)

// recordingBackend 记录每次分段调用，默认原样返回
type recordingBackend struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(lines []string) ([]string, error)
}

func (b *recordingBackend) TranslateSegment(_ context.Context, lines []string) ([]string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, append([]string(nil), lines...))
	b.mu.Unlock()

	if b.fn != nil {
		return b.fn(lines)
	}
	return append([]string(nil), lines...), nil
}

func (b *recordingBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// upperBackend 模拟翻译：ASCII 转大写
func upperBackend(lines []string) ([]string, error) {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ToUpper(l)
	}
	return out, nil
}

type progressRecorder struct {
	total    int
	advanced []int
	finished bool
	err      error
}

func (p *progressRecorder) Start(total int) { p.total = total }

func (p *progressRecorder) Advance(info translation.SegmentInfo) {
	p.advanced = append(p.advanced, info.Index)
}

func (p *progressRecorder) Finish(err error) {
	p.finished = true
	p.err = err
}
