package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

// Summary 一次翻译的进度汇总
type Summary struct {
	Segments  int
	Completed int
	Lines     int
	Chars     int
	Elapsed   time.Duration
	Err       error
}

// Tracker 分段进度条
type Tracker struct {
	title  string
	writer io.Writer
	quiet  bool
	logger *zap.Logger

	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
	started time.Time
	summary Summary
}

// Option 进度条选项
type Option func(*Tracker)

// WithWriter 设置输出位置，默认 stderr
func WithWriter(w io.Writer) Option {
	return func(t *Tracker) {
		t.writer = w
	}
}

// WithQuiet 只统计，不显示进度条
func WithQuiet(quiet bool) Option {
	return func(t *Tracker) {
		t.quiet = quiet
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker 创建进度条
func NewTracker(title string, opts ...Option) *Tracker {
	t := &Tracker{
		title:  title,
		writer: os.Stderr,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ translation.ProgressTracker = (*Tracker)(nil)

// Start 开始跟踪
func (t *Tracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.started = time.Now()
	t.summary = Summary{Segments: total}
	if t.quiet || total == 0 {
		return
	}

	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(t.title).
		WithWriter(t.writer).
		WithRemoveWhenDone(false).
		Start()
	if err != nil {
		t.logger.Debug("failed to start progress bar", zap.Error(err))
		return
	}
	t.bar = bar
}

// Advance 一个分段完成
func (t *Tracker) Advance(info translation.SegmentInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Completed++
	t.summary.Lines += info.Lines
	t.summary.Chars += info.Chars
	if t.bar != nil {
		t.bar.UpdateTitle(fmt.Sprintf("%s (%d/%d)", t.title, info.Index+1, info.Total))
		t.bar.Increment()
	}
}

// Finish 结束跟踪
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Elapsed = time.Since(t.started)
	t.summary.Err = err
	if t.bar != nil {
		_, _ = t.bar.Stop()
		t.bar = nil
	}
}

// Summary 返回进度汇总
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}
