package translation

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind 错误类别
type ErrorKind int

const (
	KindUnknown       ErrorKind = iota
	KindNetwork                 // 网络错误，调用方可重试
	KindAuthExpired             // 会话密钥失效，刷新后可重试一次
	KindQuotaExceeded           // 频率或额度受限，刷新后可重试一次
	KindDecode                  // 响应无法解码，通常意味着后端协议变化
	KindUnrecoverable           // 终止整个任务
	KindRejected                // 后端明确拒绝了请求
)

// String 返回类别名称
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network_error"
	case KindAuthExpired:
		return "auth_expired"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindDecode:
		return "decode_error"
	case KindUnrecoverable:
		return "unrecoverable"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// kindSentinel 用于 errors.Is 按类别匹配
type kindSentinel struct {
	kind ErrorKind
}

func (s kindSentinel) Error() string {
	return s.kind.String()
}

// 按类别匹配的哨兵错误
var (
	ErrNetwork       error = kindSentinel{KindNetwork}
	ErrAuthExpired   error = kindSentinel{KindAuthExpired}
	ErrQuotaExceeded error = kindSentinel{KindQuotaExceeded}
	ErrDecode        error = kindSentinel{KindDecode}
	ErrUnrecoverable error = kindSentinel{KindUnrecoverable}
	ErrRejected      error = kindSentinel{KindRejected}
)

// ErrLineCountMismatch 后端返回的行数与发送的行数不一致
var ErrLineCountMismatch = errors.New("line count mismatch")

// Error 翻译错误
type Error struct {
	Kind     ErrorKind // 错误类别
	Provider string    // 发生错误的后端
	Message  string    // 错误消息
	Payload  string    // 无法解析的原始响应，用于诊断
	Cause    error     // 原因
}

// Error 实现error接口
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap 返回原因错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 与同类别的哨兵错误匹配
func (e *Error) Is(target error) bool {
	s, ok := target.(kindSentinel)
	return ok && s.kind == e.Kind
}

// IsRetryable 是否可由调用方重试
func (e *Error) IsRetryable() bool {
	return e.Kind == KindNetwork
}

// NewError 创建翻译错误
func NewError(kind ErrorKind, provider, message string, cause error) *Error {
	return &Error{
		Kind:     kind,
		Provider: provider,
		Message:  message,
		Cause:    cause,
	}
}

// NewDecodeError 创建带原始响应的解码错误
func NewDecodeError(provider, message, payload string, cause error) *Error {
	return &Error{
		Kind:     KindDecode,
		Provider: provider,
		Message:  message,
		Payload:  payload,
		Cause:    cause,
	}
}

// NewLineCountError 创建行数不一致错误
func NewLineCountError(provider string, want, got int) *Error {
	return &Error{
		Kind:     KindDecode,
		Provider: provider,
		Message:  fmt.Sprintf("expected %d lines, got %d", want, got),
		Cause:    ErrLineCountMismatch,
	}
}

// KindOf 提取错误类别
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *Error
	if errors.As(err, &te) {
		return te.IsRetryable()
	}
	return false
}

// NeedsRefresh 错误是否应触发密钥刷新后重试一次
func NeedsRefresh(err error) bool {
	switch KindOf(err) {
	case KindAuthExpired, KindQuotaExceeded:
		return true
	default:
		return false
	}
}
