package glossary

import (
	"strings"
	"unicode/utf8"
)

// Match 一次术语命中
type Match struct {
	Entry int // 术语表中的下标
	Start int // 字节偏移
	End   int
}

// Matcher 最左最长匹配器
type Matcher struct {
	g     *Glossary
	order []int
}

// NewMatcher 创建匹配器；术语表在匹配器生命周期内不应再修改
func NewMatcher(g *Glossary) *Matcher {
	m := &Matcher{g: g}
	if g != nil {
		m.order = g.byLengthDesc()
	}
	return m
}

// FindAll 单遍扫描，在每个位置选择最长的源术语，命中后跳过已匹配的文本
func (m *Matcher) FindAll(text string) []Match {
	if m.g == nil || len(m.order) == 0 || text == "" {
		return nil
	}

	var matches []Match
	for pos := 0; pos < len(text); {
		hit := -1
		for _, i := range m.order {
			if strings.HasPrefix(text[pos:], m.g.entries[i].Source) {
				hit = i
				break
			}
		}
		if hit < 0 {
			// 按字符前进，避免落在多字节字符中间
			_, size := utf8.DecodeRuneInString(text[pos:])
			pos += size
			continue
		}
		end := pos + len(m.g.entries[hit].Source)
		matches = append(matches, Match{Entry: hit, Start: pos, End: end})
		pos = end
	}
	return matches
}

// Replace 将每个命中替换为 marker(entry) 的返回值
func (m *Matcher) Replace(text string, marker func(entry int) string) (string, []Match) {
	matches := m.FindAll(text)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, hit := range matches {
		b.WriteString(text[last:hit.Start])
		b.WriteString(marker(hit.Entry))
		last = hit.End
	}
	b.WriteString(text[last:])
	return b.String(), matches
}

// Entry 返回下标对应的条目
func (m *Matcher) Entry(i int) Entry {
	return m.g.entries[i]
}
