package baidu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	const gtk = "320305.131321201"

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"ascii", "hello", "54706.276099"},
		{"ascii with space", "hello world", "288018.34339"},
		{"japanese", "こんにちは", "731119.1033438"},
		{"long japanese", "山田太郎様は今日も元気に学校へ向かった。空は青く、風は穏やかだった。", "359947.105786"},
		{"surrogate pair", "a😀b", "209327.512670"},
		{"two surrogate pairs", "a😀😀b", "584711.790326"},
		{"lone astral", "😀", "718371.922898"},
		{"empty", "", "800951.580486"},
		{"long ascii", "The quick brown fox jumps over the lazy dog again and again", "671921.959360"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sign(tt.query, gtk))
			assert.Equal(t, tt.want, Sign(tt.query, gtk), "sign must be deterministic")
		})
	}
}

func TestSignEmptyGtk(t *testing.T) {
	assert.Equal(t, "29979.29979", Sign("hello", ""))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "hello", compact("hello"))
	assert.Equal(t,
		"山田太郎様は今日も元学校へ向かった。空は、風は穏やかだった。",
		compact("山田太郎様は今日も元気に学校へ向かった。空は青く、風は穏やかだった。"))
	assert.Equal(t,
		"The quick s over the and again",
		compact("The quick brown fox jumps over the lazy dog again and again"))
}

func TestEncodeMatchesUTF8ForBMP(t *testing.T) {
	for _, s := range []string{"a", "é", "こんにちは", "山田太郎様。"} {
		raw := []byte(s)
		got := encode(s)
		if assert.Len(t, got, len(raw), s) {
			for i := range raw {
				assert.Equal(t, int64(raw[i]), got[i], s)
			}
		}
	}
}

func TestEncodeSurrogatePairs(t *testing.T) {
	tests := []struct {
		in   string
		want []int64
	}{
		{"a😀b", []int64{97, 244, 143, 128, 98}},
		{"𠮷", []int64{244, 143, 183}},
		// 高位代理不参与计算，不同的 emoji 只在末字节上有差别
		{"😀😁", []int64{244, 143, 128, 244, 143, 129}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, encode(tt.in), tt.in)
	}
}
