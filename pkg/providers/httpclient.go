package providers

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/nerdneilsfield/go-novel-mt/pkg/providers/retry"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// NewHTTPClient 创建带 Cookie 会话、代理与重试的 HTTP 客户端
//
// 两个网页版后端都依赖首页下发的 Cookie，因此每个后端实例持有自己的 Jar。
func NewHTTPClient(cfg BaseConfig, logger *zap.Logger) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		base.Proxy = http.ProxyURL(proxy)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &http.Client{
		Jar:     jar,
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			next:      retry.NewTransport(base, cfg.Retry, logger),
			headers:   cfg.Headers,
			userAgent: userAgent,
		},
	}, nil
}

// headerTransport 为每个请求补充默认头部，不覆盖调用方已设置的值
type headerTransport struct {
	next      http.RoundTripper
	headers   map[string]string
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return t.next.RoundTrip(req)
}
