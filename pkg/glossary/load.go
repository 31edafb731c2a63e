package glossary

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// tomlFile TOML 术语表格式
//
//	[terms]
//	"山田太郎" = "山田太郎"
//
// 或者需要保持顺序时：
//
//	[[entry]]
//	source = "山田"
//	target = "山田"
type tomlFile struct {
	Terms   map[string]string `toml:"terms"`
	Entries []Entry           `toml:"entry"`
}

// LoadFile 按扩展名加载术语表（.toml / .json / .txt）
func LoadFile(path string) (*Glossary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return parseTOML(content)
	case ".json":
		return parseJSON(content)
	case ".txt", "":
		return parseText(content)
	default:
		return nil, fmt.Errorf("unsupported glossary format: %s", filepath.Ext(path))
	}
}

func parseTOML(content []byte) (*Glossary, error) {
	var f tomlFile
	if err := toml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal glossary: %w", err)
	}

	g, err := New(f.Entries...)
	if err != nil {
		return nil, err
	}
	fromTerms, err := FromMap(f.Terms)
	if err != nil {
		return nil, err
	}
	for _, e := range fromTerms.Entries() {
		if err := g.Set(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// parseJSON 支持 {"源":"译"} 对象或 [{"source":..,"target":..}] 数组
func parseJSON(content []byte) (*Glossary, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal glossary: %w", err)
		}
		return New(entries...)
	}

	var m map[string]string
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal glossary: %w", err)
	}
	return FromMap(m)
}

// parseText 每行一个 "源=译"，# 开头为注释
func parseText(content []byte) (*Glossary, error) {
	g := &Glossary{index: make(map[string]int)}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		source, target, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("glossary line %d: missing '='", lineNo)
		}
		if err := g.Set(strings.TrimSpace(source), strings.TrimSpace(target)); err != nil {
			return nil, fmt.Errorf("glossary line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return g, nil
}
