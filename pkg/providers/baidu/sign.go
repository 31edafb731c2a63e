package baidu

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	signRounds = "+-a^+6"
	signFinish = "+-3^+b+-f"
)

// compact 长文本只取首、中、尾各 10 个字符参与签名
//
// 网页端按码点计数（代理对视为一个字符），与 Go 的 rune 一致。
func compact(query string) string {
	runes := []rune(query)
	n := len(runes)
	if n <= 30 {
		return query
	}
	mid := n / 2
	var b strings.Builder
	b.WriteString(string(runes[:10]))
	b.WriteString(string(runes[mid-5 : mid+5]))
	b.WriteString(string(runes[n-10:]))
	return b.String()
}

// encode 按 UTF-16 码元逐个编码为字节序列，与网页端逐字节一致
//
// BMP 字符与 UTF-8 相同。代理对只输出三个字节（缺少 c>>6 那一字节），
// 且码点计算忽略高位代理，固定取 0x3ff<<10，服务端按同样的算法校验。
func encode(s string) []int64 {
	units := utf16.Encode([]rune(s))
	out := make([]int64, 0, len(units)*3)
	for i := 0; i < len(units); i++ {
		c := int64(units[i])
		if c < 0x80 {
			out = append(out, c)
			continue
		}
		switch {
		case c < 0x800:
			out = append(out, c>>6|0xc0)
		case c&0xfc00 == 0xd800 && i+1 < len(units) && int64(units[i+1])&0xfc00 == 0xdc00:
			i++
			c = 0x10000 + 0x3ff<<10 + int64(units[i])&0x3ff
			out = append(out, c>>18|0xf0, (c>>12)&0x3f|0x80)
		default:
			out = append(out, c>>12|0xe0, (c>>6)&0x3f|0x80)
		}
		out = append(out, c&0x3f|0x80)
	}
	return out
}

// fold 按密钥表对状态做移位、异或与加法，数值语义与 32 位整数运算一致
func fold(r int64, key string) int64 {
	for t := 0; t+2 < len(key); t += 3 {
		var shift uint
		if c := key[t+2]; c >= 'a' {
			shift = uint(c - 87)
		} else {
			shift = uint(c - '0')
		}

		var v int64
		if key[t+1] == '+' {
			v = int64(uint32(r) >> shift)
		} else {
			v = int64(int32(uint32(r) << shift))
		}

		if key[t] == '+' {
			r = int64(int32(uint32(r + v)))
		} else {
			r = int64(int32(r) ^ int32(v))
		}
	}
	return r
}

func parseGtkPart(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Sign 计算 v2transapi 请求签名
func Sign(query, gtk string) string {
	parts := strings.Split(gtk, ".")
	gtk1 := parseGtkPart(parts[0])
	var gtk2 int64
	if len(parts) > 1 {
		gtk2 = parseGtkPart(parts[1])
	}

	s := gtk1
	for _, b := range encode(compact(query)) {
		s = fold(s+b, signRounds)
	}
	s = fold(s, signFinish)
	s = int64(int32(s) ^ int32(gtk2))
	if s < 0 {
		s = int64(uint32(s))
	}
	s %= 1e6

	return strconv.FormatInt(s, 10) + "." + strconv.FormatInt(int64(int32(s)^int32(gtk1)), 10)
}
