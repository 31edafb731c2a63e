package youdao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/nerdneilsfield/go-novel-mt/pkg/providers"
	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"go.uber.org/zap"
)

const (
	providerName = "youdao"

	// DefaultKey 获取密钥失败时使用的内置密钥
	DefaultKey = "fsdsogkndfokasodnaso"

	keyGetterSecret = "asdjnjfenknafdfsdfsd"
)

// Config 有道翻译配置
type Config struct {
	providers.BaseConfig
	DictURL string `json:"dict_url"`
	RlogURL string `json:"rlog_url"`
	From    string `json:"from"`
	To      string `json:"to"`
	// DefaultKey 初始密钥，为空时使用内置密钥
	DefaultKey string `json:"default_key"`
	// SkipRlog 不发送页面访问日志
	SkipRlog bool `json:"skip_rlog"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig: providers.DefaultConfig(),
		DictURL:    "https://dict.youdao.com",
		RlogURL:    "https://rlogs.youdao.com/rlog.php",
		From:       "ja",
		To:         "zh-CHS",
		DefaultKey: DefaultKey,
	}
}

// Client 有道网页翻译客户端
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	// initMu 串行化密钥刷新
	initMu      sync.Mutex
	initialized bool

	mu  sync.RWMutex
	key string
}

// New 创建有道翻译客户端
func New(config Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.DictURL == "" {
		config.DictURL = defaults.DictURL
	}
	if config.RlogURL == "" {
		config.RlogURL = defaults.RlogURL
	}
	if config.From == "" {
		config.From = defaults.From
	}
	if config.To == "" {
		config.To = defaults.To
	}
	if config.DefaultKey == "" {
		config.DefaultKey = defaults.DefaultKey
	}
	config.DictURL = strings.TrimRight(config.DictURL, "/")

	httpClient, err := providers.NewHTTPClient(config.BaseConfig, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger.With(zap.String("provider", providerName)),
		now:        time.Now,
		key:        config.DefaultKey,
	}, nil
}

// Name 获取后端名称
func (c *Client) Name() string {
	return providerName
}

// Capabilities 获取后端能力
func (c *Client) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		SourceLanguage:   c.config.From,
		TargetLanguage:   c.config.To,
		MaxSegmentLength: translation.DefaultSegmentSize,
		RequiresSession:  true,
	}
}

// Key 返回当前签名密钥
func (c *Client) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// Init 发送访问日志并获取密钥，失败时沿用内置密钥
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	c.initLocked(ctx)
	return nil
}

func (c *Client) initLocked(ctx context.Context) {
	if !c.config.SkipRlog {
		if err := c.Rlog(ctx); err != nil {
			c.logger.Debug("rlog failed", zap.Error(err))
		}
	}
	c.refreshLocked(ctx)
	c.initialized = true
}

// Rlog 发送页面访问日志，与网页端的请求序列保持一致
func (c *Client) Rlog(ctx context.Context) error {
	params := url.Values{}
	params.Set("_npid", "fanyiweb")
	params.Set("_ncat", "pageview")
	params.Set("_ncoo", strconv.FormatFloat(2147483647*rand.Float64(), 'f', -1, 64))
	params.Set("_nssn", "NULL")
	params.Set("_nver", "1.2.0")
	params.Set("_ntms", strconv.FormatInt(c.now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.RlogURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// RefreshKey 获取新的签名密钥
//
// 失败时保留原有密钥并返回错误，调用方可以忽略该错误继续使用旧密钥。
func (c *Client) RefreshKey(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	return c.refreshLocked(ctx)
}

type keyResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		SecretKey string `json:"secretKey"`
	} `json:"data"`
}

func (c *Client) refreshLocked(ctx context.Context) error {
	err := c.fetchKey(ctx)
	if err != nil {
		c.logger.Warn("failed to refresh key, keeping current key",
			zap.Error(err),
			zap.Bool("default_key", c.Key() == c.config.DefaultKey))
	}
	return err
}

func (c *Client) fetchKey(ctx context.Context) error {
	params := url.Values{}
	params.Set("keyid", "webfanyi-key-getter")
	for k, v := range baseBody(keyGetterSecret, c.now().UnixMilli()) {
		params.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.DictURL+"/webtranslate/key?"+params.Encode(), nil)
	if err != nil {
		return translation.NewError(translation.KindNetwork, providerName, "failed to create request", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}

	var resp keyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return translation.NewDecodeError(providerName, "invalid key response", string(body), err)
	}
	if resp.Data.SecretKey == "" {
		return translation.NewError(translation.KindRejected, providerName,
			fmt.Sprintf("no secret key in response (code %d: %s)", resp.Code, resp.Msg), nil)
	}

	c.mu.Lock()
	c.key = resp.Data.SecretKey
	c.mu.Unlock()
	c.logger.Debug("key refreshed")
	return nil
}

// TranslateSegment 翻译一个分段，行之间以换行连接
func (c *Client) TranslateSegment(ctx context.Context, lines []string) ([]string, error) {
	if len(lines) == 0 {
		return []string{}, nil
	}

	c.initMu.Lock()
	if !c.initialized {
		c.initLocked(ctx)
	}
	c.initMu.Unlock()

	query := strings.Join(lines, "\n")
	out, err := c.webtranslate(ctx, query)
	if translation.NeedsRefresh(err) {
		c.logger.Info("refreshing key after error", zap.Error(err))
		_ = c.RefreshKey(ctx)
		out, err = c.webtranslate(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	if len(out) != len(lines) {
		return nil, translation.NewLineCountError(providerName, len(lines), len(out))
	}
	return out, nil
}

func (c *Client) webtranslate(ctx context.Context, query string) ([]string, error) {
	form := url.Values{}
	form.Set("i", query)
	form.Set("from", c.config.From)
	form.Set("to", c.config.To)
	form.Set("dictResult", "true")
	form.Set("keyid", "webfanyi")
	for k, v := range baseBody(c.Key(), c.now().UnixMilli()) {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.DictURL+"/webtranslate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, translation.NewError(translation.KindNetwork, providerName, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

type fragment struct {
	Tgt string `json:"tgt"`
	Src string `json:"src"`
}

type translateResponse struct {
	Code            int          `json:"code"`
	Msg             string       `json:"msg"`
	TranslateResult [][]fragment `json:"translateResult"`
}

// parseResponse 解密并提取译文，每个句组对应一行
func parseResponse(body []byte) ([]string, error) {
	payload := bytes.TrimSpace(body)

	// 错误响应有时不加密
	plain := payload
	if len(payload) == 0 || payload[0] != '{' {
		var err error
		plain, err = decrypt(string(payload))
		if err != nil {
			return nil, translation.NewDecodeError(providerName, "failed to decrypt response", string(body), err)
		}
	}

	var resp translateResponse
	if err := json.Unmarshal(plain, &resp); err != nil {
		e := translation.NewError(translation.KindUnrecoverable, providerName, "decrypted response is not json", err)
		e.Payload = string(plain)
		return nil, e
	}

	switch {
	case resp.Code == 50:
		return nil, translation.NewError(translation.KindAuthExpired, providerName,
			fmt.Sprintf("code %d: %s", resp.Code, resp.Msg), nil)
	case resp.Code != 0:
		return nil, translation.NewError(translation.KindRejected, providerName,
			fmt.Sprintf("code %d: %s", resp.Code, resp.Msg), nil)
	}

	out := make([]string, 0, len(resp.TranslateResult))
	for _, group := range resp.TranslateResult {
		var b strings.Builder
		for _, f := range group {
			b.WriteString(strings.TrimRightFunc(f.Tgt, unicode.IsSpace))
		}
		out = append(out, b.String())
	}
	return out, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, translation.NewError(translation.KindNetwork, providerName, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, translation.NewError(translation.KindNetwork, providerName, "failed to read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, translation.NewError(translation.KindNetwork, providerName,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return body, nil
}
