package chapter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Auto 自动检测输入编码
const Auto = "auto"

// ReadLines 读取章节文本并按行拆分，保留空行
//
// encodingName 为空或 "auto" 时自动检测，否则按 WHATWG 名称解码（如 shift_jis、gbk）。
func ReadLines(r io.Reader, encodingName string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	text, err := Decode(data, encodingName)
	if err != nil {
		return nil, err
	}
	return SplitLines(text), nil
}

// Decode 将字节解码为 UTF-8 字符串
func Decode(data []byte, encodingName string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(encodingName))
	if name == "" || name == Auto {
		return detectAndConvert(data), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", encodingName, err)
	}
	res, err := decodeWith(enc, data)
	if err != nil {
		return "", fmt.Errorf("failed to decode input as %s: %w", encodingName, err)
	}
	return strings.TrimPrefix(string(res), "\ufeff"), nil
}

// SplitLines 按 \n、\r\n 拆分，末尾换行不产生额外空行
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func decodeWith(enc encoding.Encoding, data []byte) ([]byte, error) {
	return io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
}

// detectAndConvert 检测并转换文本编码
func detectAndConvert(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	// UTF-8 BOM
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return string(data[3:])
	}
	if utf8.Valid(data) {
		return string(data)
	}

	if len(data) >= 2 {
		var bom encoding.Encoding
		switch {
		case data[0] == 0xFF && data[1] == 0xFE:
			bom = xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM)
		case data[0] == 0xFE && data[1] == 0xFF:
			bom = xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM)
		}
		if bom != nil {
			if res, err := decodeWith(bom, data[2:]); err == nil && utf8.Valid(res) {
				return string(res)
			}
		}
	}

	// 网络小说常见编码，日文优先
	candidates := []encoding.Encoding{
		japanese.ShiftJIS,
		japanese.EUCJP,
		simplifiedchinese.GB18030,
		traditionalchinese.Big5,
	}
	for _, enc := range candidates {
		res, err := decodeWith(enc, data)
		if err == nil && utf8.Valid(res) && isReasonableText(string(res)) {
			return string(res)
		}
	}

	return string(data)
}

// isReasonableText 可打印字符超过 90% 且没有替换字符
func isReasonableText(text string) bool {
	if len(text) == 0 {
		return false
	}

	printable, total := 0, 0
	for _, r := range text {
		total++
		if r == utf8.RuneError {
			return false
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable)/float64(total) > 0.9
}

// WriteLines 每行一个换行写出
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// BilingualOptions 对照输出选项
type BilingualOptions struct {
	// Columns 大于 0 时并排输出，原文列按显示宽度对齐
	Columns int
	// Color 为译文着色，仅用于终端
	Color bool
}

// WriteBilingual 输出原文与译文对照
//
// 默认每行原文之后紧跟译文；空行只输出一次。
func WriteBilingual(w io.Writer, source, translated []string, opts BilingualOptions) error {
	if len(source) != len(translated) {
		return fmt.Errorf("line count mismatch: %d source lines, %d translated lines", len(source), len(translated))
	}

	paint := fmt.Sprint
	if opts.Color {
		c := color.New(color.FgCyan)
		c.EnableColor()
		paint = c.Sprint
	}

	bw := bufio.NewWriter(w)
	for i, src := range source {
		dst := translated[i]
		var err error
		switch {
		case strings.TrimSpace(src) == "":
			_, err = bw.WriteString(src + "\n")
		case opts.Columns > 0:
			cell := runewidth.FillRight(runewidth.Truncate(src, opts.Columns, "…"), opts.Columns)
			_, err = fmt.Fprintf(bw, "%s | %s\n", cell, paint(dst))
		default:
			_, err = fmt.Fprintf(bw, "%s\n%s\n", src, paint(dst))
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
