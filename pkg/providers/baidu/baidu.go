package baidu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/dlclark/regexp2"
	"github.com/nerdneilsfield/go-novel-mt/pkg/providers"
	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"go.uber.org/zap"
)

const providerName = "baidu"

var (
	tokenPattern      = regexp2.MustCompile(`token: '(.*?)',`, regexp2.ECMAScript)
	desktopGtkPattern = regexp2.MustCompile(`window\.gtk = "(.*?)";`, regexp2.ECMAScript)
	mobileGtkPattern  = regexp2.MustCompile(`gtk: '(.*?)'`, regexp2.ECMAScript)
)

// Config 百度翻译配置
type Config struct {
	providers.BaseConfig
	BaseURL string `json:"base_url"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig: providers.DefaultConfig(),
		BaseURL:    "https://fanyi.baidu.com",
		From:       "jp",
		To:         "zh",
	}
}

// session 首页下发的签名密钥
type session struct {
	token string
	gtk   string
}

func (s session) ready() bool {
	return s.token != "" && s.gtk != ""
}

// Client 百度网页翻译客户端
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger

	// refreshMu 保证同一时刻只有一个刷新
	refreshMu sync.Mutex
	mu        sync.RWMutex
	session   session
}

// New 创建百度翻译客户端
func New(config Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.From == "" {
		config.From = defaults.From
	}
	if config.To == "" {
		config.To = defaults.To
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient, err := providers.NewHTTPClient(config.BaseConfig, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger.With(zap.String("provider", providerName)),
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

// Init 预先获取 token 与 gtk
func (c *Client) Init(ctx context.Context) error {
	return c.RefreshGtkAndToken(ctx)
}

// Session 返回当前 token 与 gtk
func (c *Client) Session() (token, gtk string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.token, c.session.gtk
}

// RefreshGtkAndToken 拉取首页并提取 token 与 gtk
//
// 页面中找不到时置为空字符串，只有网络失败才返回错误。
func (c *Client) RefreshGtkAndToken(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Client) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return translation.NewError(translation.KindNetwork, providerName, "failed to create request", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}

	html := string(body)
	next := session{token: extract(html, tokenPattern)}
	next.gtk = extract(html, desktopGtkPattern)
	if next.gtk == "" {
		next.gtk = extract(html, mobileGtkPattern)
	}

	c.mu.Lock()
	c.session = next
	c.mu.Unlock()

	if !next.ready() {
		c.logger.Warn("token or gtk not found in page",
			zap.Bool("has_token", next.token != ""),
			zap.Bool("has_gtk", next.gtk != ""))
	} else {
		c.logger.Debug("session refreshed", zap.String("gtk", next.gtk))
	}
	return nil
}

// extract 优先在 <script> 内容中查找，找不到再搜索整个页面
func extract(html string, pattern *regexp2.Regexp) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		var found string
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = firstGroup(pattern, s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return firstGroup(pattern, html)
}

func firstGroup(pattern *regexp2.Regexp, text string) string {
	m, err := pattern.FindStringMatch(text)
	if err != nil || m == nil {
		return ""
	}
	return m.GroupByNumber(1).String()
}

// ensureSession 会话未就绪时刷新一次
func (c *Client) ensureSession(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	ready := c.session.ready()
	c.mu.RUnlock()
	if ready {
		return nil
	}
	return c.refreshLocked(ctx)
}

// TranslateSegment 翻译一个分段，行之间以换行连接
func (c *Client) TranslateSegment(ctx context.Context, lines []string) ([]string, error) {
	if len(lines) == 0 {
		return []string{}, nil
	}
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	query := strings.Join(lines, "\n")
	out, err := c.v2transapi(ctx, query)
	if translation.NeedsRefresh(err) {
		c.logger.Info("refreshing session after error", zap.Error(err))
		if rerr := c.RefreshGtkAndToken(ctx); rerr != nil {
			return nil, rerr
		}
		out, err = c.v2transapi(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	if len(out) != len(lines) {
		return nil, translation.NewLineCountError(providerName, len(lines), len(out))
	}
	return out, nil
}

// v2transapiResponse 三种形态：成功、error/msg、errno/errmsg
type v2transapiResponse struct {
	TransResult *struct {
		Data []struct {
			Dst string `json:"dst"`
		} `json:"data"`
	} `json:"trans_result"`
	Error  *int   `json:"error"`
	Msg    string `json:"msg"`
	Errno  *int   `json:"errno"`
	Errmsg string `json:"errmsg"`
}

func (c *Client) v2transapi(ctx context.Context, query string) ([]string, error) {
	token, gtk := c.Session()
	if token == "" || gtk == "" {
		return nil, translation.NewError(translation.KindAuthExpired, providerName, "session not ready: token or gtk missing", nil)
	}

	form := url.Values{}
	form.Set("from", c.config.From)
	form.Set("to", c.config.To)
	form.Set("query", query)
	form.Set("simple_means_flag", "3")
	form.Set("sign", Sign(query, gtk))
	form.Set("token", token)
	form.Set("domain", "common")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v2transapi", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, translation.NewError(translation.KindNetwork, providerName, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

// parseResponse 解析 v2transapi 响应
func parseResponse(body []byte) ([]string, error) {
	var resp v2transapiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, translation.NewDecodeError(providerName, "invalid json response", string(body), err)
	}

	switch {
	case resp.TransResult != nil:
		out := make([]string, 0, len(resp.TransResult.Data))
		for _, d := range resp.TransResult.Data {
			out = append(out, d.Dst)
		}
		return out, nil
	case resp.Error != nil:
		return nil, codeError(*resp.Error, resp.Msg)
	case resp.Errno != nil && *resp.Errno != 0:
		return nil, codeError(*resp.Errno, resp.Errmsg)
	default:
		return nil, translation.NewDecodeError(providerName, "unexpected response shape", string(body), nil)
	}
}

// codeError 将后端错误码映射为错误类别
func codeError(code int, msg string) error {
	var kind translation.ErrorKind
	switch code {
	case 997, 998:
		kind = translation.KindAuthExpired
	case 1022, 54003, 54005:
		kind = translation.KindQuotaExceeded
	default:
		kind = translation.KindRejected
	}
	return translation.NewError(kind, providerName, fmt.Sprintf("code %d: %s", code, msg), nil)
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
