package translation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("segment 3: %w", translation.NewError(translation.KindNetwork, "baidu", "request failed", cause))

	assert.ErrorIs(t, err, translation.ErrNetwork)
	assert.NotErrorIs(t, err, translation.ErrAuthExpired)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, translation.KindNetwork, translation.KindOf(err))
	assert.True(t, translation.IsRetryable(err))
	assert.False(t, translation.NeedsRefresh(err))
	assert.Contains(t, err.Error(), "[baidu] network_error: request failed: connection reset")
}

func TestNeedsRefresh(t *testing.T) {
	assert.True(t, translation.NeedsRefresh(translation.NewError(translation.KindAuthExpired, "baidu", "997", nil)))
	assert.True(t, translation.NeedsRefresh(translation.NewError(translation.KindQuotaExceeded, "baidu", "1022", nil)))
	assert.False(t, translation.NeedsRefresh(translation.NewError(translation.KindUnrecoverable, "youdao", "quit", nil)))
	assert.False(t, translation.NeedsRefresh(errors.New("plain")))
}

func TestIsRetryableContext(t *testing.T) {
	assert.False(t, translation.IsRetryable(context.Canceled))
	assert.False(t, translation.IsRetryable(nil))
	assert.Equal(t, translation.KindUnknown, translation.KindOf(errors.New("x")))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "decode_error", translation.KindDecode.String())
	assert.Equal(t, "unrecoverable", translation.KindUnrecoverable.String())
	assert.Equal(t, "unknown", translation.ErrorKind(99).String())
}
