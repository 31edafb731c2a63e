package providers

import (
	"context"
	"time"

	"github.com/nerdneilsfield/go-novel-mt/pkg/providers/retry"
	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
)

// DefaultUserAgent 与网页版客户端一致的 UA
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BaseConfig 基础配置
type BaseConfig struct {
	// 超时
	Timeout time.Duration `json:"timeout"`

	// 代理设置
	ProxyURL string `json:"proxy_url,omitempty"`

	// 自定义头部
	Headers   map[string]string `json:"headers,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`

	// 传输层重试
	Retry retry.RetryConfig `json:"retry"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:   30 * time.Second,
		Headers:   make(map[string]string),
		UserAgent: DefaultUserAgent,
		Retry:     retry.DefaultRetryConfig(),
	}
}

// Provider 翻译后端：一次 TranslateSegment 对应一次网络请求
type Provider interface {
	translation.SegmentTranslator

	// Name 获取后端名称
	Name() string

	// Init 预先获取会话密钥；TranslateSegment 也会在需要时懒加载
	Init(ctx context.Context) error

	// Capabilities 获取后端能力
	Capabilities() Capabilities
}

// Capabilities 后端能力
type Capabilities struct {
	SourceLanguage   string `json:"source_language"`
	TargetLanguage   string `json:"target_language"`
	MaxSegmentLength int    `json:"max_segment_length"`
	RequiresSession  bool   `json:"requires_session"`
}
