package translation

import (
	"context"
	"strings"
)

// EmptyLineFilter 过滤空白行：空白行原样保留在原位置，且不会发送给后端
type EmptyLineFilter struct{}

// Name 阶段名称
func (EmptyLineFilter) Name() string {
	return "empty_line_filter"
}

// Process 只把非空白行交给 next，再按原下标放回
func (EmptyLineFilter) Process(ctx context.Context, lines []string, next BatchTranslator) ([]string, error) {
	out := make([]string, len(lines))
	positions := make([]int, 0, len(lines))
	texts := make([]string, 0, len(lines))

	for i, line := range lines {
		if IsBlank(line) {
			out[i] = line
			continue
		}
		positions = append(positions, i)
		texts = append(texts, line)
	}

	if len(texts) == 0 {
		return out, nil
	}

	translated, err := next.TranslateBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(texts) {
		return nil, NewLineCountError("", len(texts), len(translated))
	}

	for j, pos := range positions {
		out[pos] = translated[j]
	}
	return out, nil
}

// IsBlank 是否为空白行（包括全角空格）
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
