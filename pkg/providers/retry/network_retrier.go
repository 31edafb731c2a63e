package retry

import (
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// RetryConfig 传输层重试配置
type RetryConfig struct {
	// 最大重试次数（不含首次请求）
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay" mapstructure:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay" mapstructure:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor" mapstructure:"backoff_factor"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ErrorType 错误类型枚举
type ErrorType int

const (
	ErrorTypeNone          ErrorType = iota
	ErrorTypeNetwork                 // 网络瞬时错误
	ErrorTypeRetryableHTTP           // 可重试的HTTP错误（429）
	ErrorTypeClientError             // 客户端错误（4xx）
	ErrorTypeServerError             // 服务端错误（5xx）
	ErrorTypePermanent               // 永久性错误
)

// Transport 对瞬时网络错误、5xx 与 429 进行有限次数重试的 RoundTripper
//
// 只处理传输层问题；后端业务错误（签名失效等）由各后端自行处理。
type Transport struct {
	next   http.RoundTripper
	config RetryConfig
	logger *zap.Logger
	sleep  func(delay time.Duration, done <-chan struct{}) bool
}

// NewTransport 创建重试传输层
func NewTransport(next http.RoundTripper, config RetryConfig, logger *zap.Logger) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		next:   next,
		config: config,
		logger: logger,
		sleep:  sleepContext,
	}
}

// RoundTrip 实现 http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		current := req
		if attempt > 0 {
			replay, ok := rewind(req)
			if !ok {
				return nil, errors.New("retry: request body cannot be replayed")
			}
			current = replay
		}

		resp, err := t.next.RoundTrip(current)
		errorType := ClassifyError(err, resp)
		if !t.shouldRetry(errorType, attempt) || ctx.Err() != nil {
			return resp, err
		}

		delay := t.calculateDelay(attempt)
		t.logger.Debug("retrying request",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if !t.sleep(delay, ctx.Done()) {
			return nil, ctx.Err()
		}
	}
}

// rewind 为重试复制请求并重置请求体
func rewind(req *http.Request) (*http.Request, bool) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone.Body = body
	return clone, true
}

// ClassifyError 分类错误
func ClassifyError(err error, resp *http.Response) ErrorType {
	if err != nil {
		if IsNetworkError(err) {
			return ErrorTypeNetwork
		}
		return ErrorTypePermanent
	}

	if resp != nil {
		switch {
		case resp.StatusCode >= 500:
			return ErrorTypeServerError
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrorTypeRetryableHTTP
		case resp.StatusCode >= 400:
			return ErrorTypeClientError
		}
	}

	return ErrorTypeNone
}

// IsNetworkError 判断是否为瞬时网络错误
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		if IsNetworkError(urlErr.Err) {
			return true
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"i/o timeout",
		"eof",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// shouldRetry 判断是否应该重试
func (t *Transport) shouldRetry(errorType ErrorType, attempt int) bool {
	if attempt >= t.config.MaxRetries {
		return false
	}
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServerError, ErrorTypeRetryableHTTP:
		return true
	default:
		return false
	}
}

// calculateDelay 指数退避，受最大延迟限制
func (t *Transport) calculateDelay(attempt int) time.Duration {
	delay := t.config.InitialDelay
	if attempt > 0 {
		factor := t.config.BackoffFactor
		if factor <= 1.0 {
			factor = 2.0
		}
		delay = time.Duration(float64(delay) * math.Pow(factor, float64(attempt)))
	}
	if t.config.MaxDelay > 0 && delay > t.config.MaxDelay {
		delay = t.config.MaxDelay
	}
	return delay
}

func sleepContext(delay time.Duration, done <-chan struct{}) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-done:
		return false
	case <-timer.C:
		return true
	}
}
