package translation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/nerdneilsfield/go-novel-mt/pkg/glossary"
	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityBatch(calls *int) translation.BatchFunc {
	return func(_ context.Context, lines []string) ([]string, error) {
		*calls++
		return append([]string(nil), lines...), nil
	}
}

func TestEmptyLineFilterKeepsPositions(t *testing.T) {
	calls := 0
	var seen []string
	next := translation.BatchFunc(func(_ context.Context, lines []string) ([]string, error) {
		calls++
		seen = lines
		return upperBackend(lines)
	})

	input := []string{"", "abc", "  ", "def", "　"}
	out, err := translation.EmptyLineFilter{}.Process(context.Background(), input, next)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"abc", "def"}, seen)
	assert.Equal(t, []string{"", "ABC", "  ", "DEF", "　"}, out)
	assert.Len(t, out, len(input))
}

func TestEmptyLineFilterAllBlankSkipsInner(t *testing.T) {
	calls := 0
	out, err := translation.EmptyLineFilter{}.Process(context.Background(), []string{"", " ", "\t"}, identityBatch(&calls))
	require.NoError(t, err)

	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"", " ", "\t"}, out)
}

func TestEmptyLineFilterPassesErrorThrough(t *testing.T) {
	want := translation.NewError(translation.KindNetwork, "stub", "boom", nil)
	next := translation.BatchFunc(func(context.Context, []string) ([]string, error) {
		return nil, want
	})

	_, err := translation.EmptyLineFilter{}.Process(context.Background(), []string{"x"}, next)
	assert.Same(t, want, err)
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		max   int
		want  []translation.Segment
	}{
		{
			name:  "fits in one",
			lines: []string{"aaaa", "bbbb"},
			max:   9,
			want:  []translation.Segment{{Start: 0, End: 2, Chars: 9}},
		},
		{
			name:  "separator counted",
			lines: []string{"aaaa", "bbbb"},
			max:   8,
			want:  []translation.Segment{{Start: 0, End: 1, Chars: 4}, {Start: 1, End: 2, Chars: 4}},
		},
		{
			name:  "oversized line alone",
			lines: []string{"ab", strings.Repeat("x", 12), "cd"},
			max:   10,
			want: []translation.Segment{
				{Start: 0, End: 1, Chars: 2},
				{Start: 1, End: 2, Chars: 12},
				{Start: 2, End: 3, Chars: 2},
			},
		},
		{
			name:  "runes not bytes",
			lines: []string{"こんにちは", "さようなら"},
			max:   11,
			want:  []translation.Segment{{Start: 0, End: 2, Chars: 11}},
		},
		{
			name:  "surrogate pairs count twice",
			lines: []string{"😀😀", "ab"},
			max:   6,
			want:  []translation.Segment{{Start: 0, End: 1, Chars: 4}, {Start: 1, End: 2, Chars: 2}},
		},
		{
			name:  "empty",
			lines: nil,
			max:   10,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translation.Partition(tt.lines, tt.max))
		})
	}
}

func TestPartitionProperties(t *testing.T) {
	lines := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		lines = append(lines, strings.Repeat("字", (i*37)%150+1))
		if i%7 == 0 {
			lines[i] += strings.Repeat("😀", i%11)
		}
	}
	lines[50] = strings.Repeat("長", 700)

	const budget = 500
	segments := translation.Partition(lines, budget)

	next := 0
	for _, seg := range segments {
		assert.Equal(t, next, seg.Start, "segments must be contiguous")
		next = seg.End

		joined := strings.Join(lines[seg.Start:seg.End], "\n")
		if seg.Len() > 1 {
			assert.LessOrEqual(t, len(utf16.Encode([]rune(joined))), budget)
		}
		assert.Equal(t, len(utf16.Encode([]rune(joined))), seg.Chars)
	}
	assert.Equal(t, len(lines), next)
}

func TestLengthSegmenterSingleOversizedLine(t *testing.T) {
	backend := &recordingBackend{}
	segmenter := translation.NewLengthSegmenter(2000, backend, nil, nil)

	line := strings.Repeat("あ", 3000)
	out, err := segmenter.TranslateBatch(context.Background(), []string{line})
	require.NoError(t, err)

	require.Equal(t, 1, backend.callCount())
	assert.Equal(t, []string{line}, backend.calls[0])
	assert.Equal(t, []string{line}, out)
}

func TestLengthSegmenterSequentialAndProgress(t *testing.T) {
	backend := &recordingBackend{fn: upperBackend}
	progress := &progressRecorder{}
	segmenter := translation.NewLengthSegmenter(5, backend, progress, nil)

	out, err := segmenter.TranslateBatch(context.Background(), []string{"ab", "cd", "ef", "gh"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AB", "CD", "EF", "GH"}, out)
	assert.Equal(t, [][]string{{"ab", "cd"}, {"ef", "gh"}}, backend.calls)
	assert.Equal(t, 2, progress.total)
	assert.Equal(t, []int{0, 1}, progress.advanced)
	assert.True(t, progress.finished)
	assert.NoError(t, progress.err)
}

func TestLengthSegmenterAbortsOnFailure(t *testing.T) {
	failure := translation.NewError(translation.KindQuotaExceeded, "stub", "too many", nil)
	backend := &recordingBackend{fn: func(lines []string) ([]string, error) {
		if lines[0] == "b" {
			return nil, failure
		}
		return lines, nil
	}}
	progress := &progressRecorder{}
	segmenter := translation.NewLengthSegmenter(1, backend, progress, nil)

	out, err := segmenter.TranslateBatch(context.Background(), []string{"a", "b", "c"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, translation.ErrQuotaExceeded)
	assert.Equal(t, 2, backend.callCount())
	assert.ErrorIs(t, progress.err, translation.ErrQuotaExceeded)
}

func TestLengthSegmenterLineCountMismatch(t *testing.T) {
	backend := &recordingBackend{fn: func(lines []string) ([]string, error) {
		return lines[:1], nil
	}}
	segmenter := translation.NewLengthSegmenter(100, backend, nil, nil)

	_, err := segmenter.TranslateBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, translation.ErrLineCountMismatch)
	assert.ErrorIs(t, err, translation.ErrDecode)
}

func TestLengthSegmenterCancelBetweenSegments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &recordingBackend{fn: func(lines []string) ([]string, error) {
		cancel()
		return lines, nil
	}}
	segmenter := translation.NewLengthSegmenter(1, backend, nil, nil)

	_, err := segmenter.TranslateBatch(ctx, []string{"a", "b", "c"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, backend.callCount())
}

func mustGlossary(t *testing.T, pairs ...string) *glossary.Glossary {
	t.Helper()
	g := &glossary.Glossary{}
	for i := 0; i+1 < len(pairs); i += 2 {
		require.NoError(t, g.Set(pairs[i], pairs[i+1]))
	}
	return g
}

func TestGlossarySubstituterLongestMatch(t *testing.T) {
	g := mustGlossary(t, "山田", "YAMADA", "山田太郎", "TARO")
	s := translation.NewGlossarySubstituter(g, translation.MarkerToken, translation.MarkerConfig{}, nil, nil)

	var sent []string
	next := translation.BatchFunc(func(_ context.Context, lines []string) ([]string, error) {
		sent = lines
		return lines, nil
	})

	out, err := s.Process(context.Background(), []string{"山田太郎様", "山田さん"}, next)
	require.NoError(t, err)

	assert.Equal(t, []string{"{G1}様", "{G0}さん"}, sent)
	assert.Equal(t, []string{"TARO様", "YAMADAさん"}, out)
}

func TestGlossarySubstituterRoundTrip(t *testing.T) {
	g := mustGlossary(t, "魔王", "魔王大人", "勇者", "勇者")
	input := []string{"魔王と勇者", "勇者は魔王を倒した", "普通の文"}

	for _, policy := range []translation.MarkerPolicy{translation.MarkerTarget, translation.MarkerToken} {
		t.Run(string(policy), func(t *testing.T) {
			s := translation.NewGlossarySubstituter(g, policy, translation.MarkerConfig{}, nil, nil)
			calls := 0
			out, err := s.Process(context.Background(), input, identityBatch(&calls))
			require.NoError(t, err)

			assert.Equal(t, 1, calls)
			assert.Equal(t, []string{"魔王大人と勇者", "勇者は魔王大人を倒した", "普通の文"}, out)
		})
	}
}

func TestGlossarySubstituterRestoreIgnoresPosition(t *testing.T) {
	g := mustGlossary(t, "エリス", "艾莉丝")
	s := translation.NewGlossarySubstituter(g, translation.MarkerToken, translation.MarkerConfig{}, nil, nil)

	// 后端改变了标记周围的内容与位置
	next := translation.BatchFunc(func(_ context.Context, lines []string) ([]string, error) {
		return []string{"她说：「 {G0} 」来了"}, nil
	})

	out, err := s.Process(context.Background(), []string{"エリスが来た"}, next)
	require.NoError(t, err)
	assert.Equal(t, []string{"她说：「 艾莉丝 」来了"}, out)
}

func TestGlossarySubstituterMissIsSilent(t *testing.T) {
	g := mustGlossary(t, "エリス", "艾莉丝")
	var misses []translation.RestoreMiss
	s := translation.NewGlossarySubstituter(g, translation.MarkerToken, translation.MarkerConfig{},
		func(m translation.RestoreMiss) { misses = append(misses, m) }, nil)

	next := translation.BatchFunc(func(_ context.Context, lines []string) ([]string, error) {
		return []string{"G 0 来了"}, nil
	})

	out, err := s.Process(context.Background(), []string{"エリスが来た"}, next)
	require.NoError(t, err)
	assert.Equal(t, []string{"G 0 来了"}, out)
	require.Len(t, misses, 1)
	assert.Equal(t, translation.RestoreMiss{Line: 0, Source: "エリス", Target: "艾莉丝", Marker: "{G0}"}, misses[0])
}

func TestParseMarkerPolicy(t *testing.T) {
	p, err := translation.ParseMarkerPolicy("")
	require.NoError(t, err)
	assert.Equal(t, translation.MarkerTarget, p)

	p, err = translation.ParseMarkerPolicy("TOKEN")
	require.NoError(t, err)
	assert.Equal(t, translation.MarkerToken, p)

	_, err = translation.ParseMarkerPolicy("uuid")
	assert.Error(t, err)
}
