package glossary

import (
	"errors"
	"sort"
	"unicode/utf8"
)

// ErrEmptyTerm 源术语为空
var ErrEmptyTerm = errors.New("glossary: empty source term")

// Entry 术语表条目
type Entry struct {
	Source string `json:"source" toml:"source"`
	Target string `json:"target" toml:"target"`
}

// Glossary 有序的术语表（源术语 -> 目标术语）
//
// 条目按插入顺序保存；重复的源术语原地更新译文，不改变顺序。
type Glossary struct {
	entries []Entry
	index   map[string]int
}

// New 创建术语表
func New(entries ...Entry) (*Glossary, error) {
	g := &Glossary{index: make(map[string]int)}
	for _, e := range entries {
		if err := g.Set(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// FromMap 从 map 创建术语表，顺序按源术语排序以保证确定性
func FromMap(m map[string]string) (*Glossary, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	g := &Glossary{index: make(map[string]int)}
	for _, k := range keys {
		if err := g.Set(k, m[k]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Set 添加或更新术语
func (g *Glossary) Set(source, target string) error {
	if source == "" {
		return ErrEmptyTerm
	}
	if g.index == nil {
		g.index = make(map[string]int)
	}
	if i, ok := g.index[source]; ok {
		g.entries[i].Target = target
		return nil
	}
	g.index[source] = len(g.entries)
	g.entries = append(g.entries, Entry{Source: source, Target: target})
	return nil
}

// Get 查找术语译文
func (g *Glossary) Get(source string) (string, bool) {
	if g == nil {
		return "", false
	}
	i, ok := g.index[source]
	if !ok {
		return "", false
	}
	return g.entries[i].Target, true
}

// Len 条目数量
func (g *Glossary) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Entries 返回条目副本
func (g *Glossary) Entries() []Entry {
	if g == nil {
		return nil
	}
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// byLengthDesc 按源术语长度降序排列的条目下标，长度相同时保持插入顺序
func (g *Glossary) byLengthDesc() []int {
	idx := make([]int, len(g.entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return utf8.RuneCountInString(g.entries[idx[a]].Source) >
			utf8.RuneCountInString(g.entries[idx[b]].Source)
	})
	return idx
}
