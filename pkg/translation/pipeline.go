package translation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline 翻译编排器：EmptyLineFilter -> GlossarySubstituter -> LengthSegmenter -> SegmentTranslator
type Pipeline struct {
	stages   []Stage
	terminal BatchTranslator
	provider string
	logger   *zap.Logger
}

// NewPipeline 按固定顺序组装流水线
func NewPipeline(segment SegmentTranslator, opts ...Option) *Pipeline {
	options := pipelineOptions{
		segmentSize:  DefaultSegmentSize,
		markerPolicy: MarkerTarget,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	stages := []Stage{EmptyLineFilter{}}
	if options.glossary.Len() > 0 {
		stages = append(stages, NewGlossarySubstituter(
			options.glossary,
			options.markerPolicy,
			options.markers,
			options.onMiss,
			options.logger,
		))
	}

	return &Pipeline{
		stages:   stages,
		terminal: NewLengthSegmenter(options.segmentSize, segment, options.progress, options.logger),
		provider: options.provider,
		logger:   options.logger,
	}
}

// Stages 返回阶段名称（含终端分段器）
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages)+1)
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return append(names, "length_segmenter")
}

// Translate 翻译一章：输入输出行数一致，顺序不变
func (p *Pipeline) Translate(ctx context.Context, lines []string) ([]string, error) {
	if len(lines) == 0 {
		return []string{}, nil
	}

	jobID := uuid.NewString()
	log := p.logger.With(zap.String("job_id", jobID), zap.String("provider", p.provider))
	log.Info("translation started", zap.Int("lines", len(lines)))

	startTime := time.Now()
	out, err := p.TranslateBatch(ctx, lines)
	if err != nil {
		fields := []zap.Field{
			zap.String("kind", KindOf(err).String()),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err),
		}
		var te *Error
		if errors.As(err, &te) && te.Payload != "" {
			fields = append(fields, zap.String("payload", te.Payload))
		}
		log.Error("translation failed", fields...)
		return nil, err
	}

	log.Info("translation finished", zap.Duration("duration", time.Since(startTime)))
	return out, nil
}

// TranslateBatch 实现 BatchTranslator，不记录任务日志
func (p *Pipeline) TranslateBatch(ctx context.Context, lines []string) ([]string, error) {
	return stageChain{p: p}.TranslateBatch(ctx, lines)
}

// stageChain 从第 idx 个阶段开始执行剩余流水线
type stageChain struct {
	p   *Pipeline
	idx int
}

func (c stageChain) TranslateBatch(ctx context.Context, lines []string) ([]string, error) {
	if c.idx >= len(c.p.stages) {
		return c.p.terminal.TranslateBatch(ctx, lines)
	}
	return c.p.stages[c.idx].Process(ctx, lines, stageChain{p: c.p, idx: c.idx + 1})
}
