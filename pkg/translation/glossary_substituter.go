package translation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nerdneilsfield/go-novel-mt/pkg/glossary"
	"go.uber.org/zap"
)

// MarkerPolicy 术语标记策略
type MarkerPolicy string

const (
	// MarkerTarget 直接用目标术语作为标记
	MarkerTarget MarkerPolicy = "target"
	// MarkerToken 用带编号的占位符作为标记
	MarkerToken MarkerPolicy = "token"
)

// MarkerConfig 占位符配置
type MarkerConfig struct {
	Prefix string
	Suffix string
}

// DefaultMarkerConfig 默认占位符格式，如 {G0}
var DefaultMarkerConfig = MarkerConfig{
	Prefix: "{G",
	Suffix: "}",
}

// ParseMarkerPolicy 解析标记策略
func ParseMarkerPolicy(s string) (MarkerPolicy, error) {
	switch MarkerPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MarkerTarget:
		return MarkerTarget, nil
	case MarkerToken:
		return MarkerToken, nil
	default:
		return "", fmt.Errorf("unknown marker policy: %s", s)
	}
}

// GlossarySubstituter 非AI术语替换：发送前把源术语替换为标记，返回后把标记还原为目标术语
type GlossarySubstituter struct {
	matcher *glossary.Matcher
	size    int
	policy  MarkerPolicy
	markers MarkerConfig
	onMiss  func(RestoreMiss)
	logger  *zap.Logger
}

// NewGlossarySubstituter 创建术语替换阶段
func NewGlossarySubstituter(g *glossary.Glossary, policy MarkerPolicy, markers MarkerConfig, onMiss func(RestoreMiss), logger *zap.Logger) *GlossarySubstituter {
	if policy == "" {
		policy = MarkerTarget
	}
	if markers.Prefix == "" && markers.Suffix == "" {
		markers = DefaultMarkerConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GlossarySubstituter{
		matcher: glossary.NewMatcher(g),
		size:    g.Len(),
		policy:  policy,
		markers: markers,
		onMiss:  onMiss,
		logger:  logger,
	}
}

// Name 阶段名称
func (s *GlossarySubstituter) Name() string {
	return "glossary_substituter"
}

// Marker 返回条目对应的标记
func (s *GlossarySubstituter) Marker(entry int) string {
	if s.policy == MarkerToken {
		return fmt.Sprintf("%s%d%s", s.markers.Prefix, entry, s.markers.Suffix)
	}
	return s.matcher.Entry(entry).Target
}

// Substitute 替换一批行，返回每行命中的条目下标
func (s *GlossarySubstituter) Substitute(lines []string) ([]string, [][]int) {
	encoded := make([]string, len(lines))
	used := make([][]int, len(lines))
	for i, line := range lines {
		out, matches := s.matcher.Replace(line, s.Marker)
		encoded[i] = out
		used[i] = uniqueEntries(matches)
	}
	return encoded, used
}

// Restore 按标记文本（而不是位置）还原；找不到的标记保持原样并报告
func (s *GlossarySubstituter) Restore(lines []string, used [][]int) ([]string, []RestoreMiss) {
	out := make([]string, len(lines))
	var misses []RestoreMiss
	for i, line := range lines {
		entries := used[i]
		// 长标记优先，避免较短的标记先被替换掉一部分
		sort.SliceStable(entries, func(a, b int) bool {
			return len(s.Marker(entries[a])) > len(s.Marker(entries[b]))
		})
		for _, e := range entries {
			marker := s.Marker(e)
			entry := s.matcher.Entry(e)
			if !strings.Contains(line, marker) {
				misses = append(misses, RestoreMiss{
					Line:   i,
					Source: entry.Source,
					Target: entry.Target,
					Marker: marker,
				})
				continue
			}
			line = strings.ReplaceAll(line, marker, entry.Target)
		}
		out[i] = line
	}
	return out, misses
}

// Process 替换、翻译、还原
func (s *GlossarySubstituter) Process(ctx context.Context, lines []string, next BatchTranslator) ([]string, error) {
	if s.size == 0 {
		return next.TranslateBatch(ctx, lines)
	}

	encoded, used := s.Substitute(lines)
	translated, err := next.TranslateBatch(ctx, encoded)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(lines) {
		return nil, NewLineCountError("", len(lines), len(translated))
	}

	restored, misses := s.Restore(translated, used)
	for _, miss := range misses {
		s.logger.Warn("glossary marker not found in translation",
			zap.Int("line", miss.Line),
			zap.String("source", miss.Source),
			zap.String("marker", miss.Marker))
		if s.onMiss != nil {
			s.onMiss(miss)
		}
	}
	return restored, nil
}

func uniqueEntries(matches []glossary.Match) []int {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(matches))
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		if seen[m.Entry] {
			continue
		}
		seen[m.Entry] = true
		out = append(out, m.Entry)
	}
	return out
}
