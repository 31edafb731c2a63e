package retry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestTransportRetriesServerErrorsWithBody(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := &http.Client{Transport: NewTransport(http.DefaultTransport, fastConfig(), nil)}
	resp, err := client.Post(server.URL, "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"payload", "payload", "payload"}, bodies)
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := &http.Client{Transport: NewTransport(http.DefaultTransport, fastConfig(), nil)}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransportGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := &http.Client{Transport: NewTransport(http.DefaultTransport, fastConfig(), nil)}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeNetwork, ClassifyError(syscall.ECONNRESET, nil))
	assert.Equal(t, ErrorTypeNetwork, ClassifyError(errors.New("read: connection reset by peer"), nil))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("unsupported protocol scheme"), nil))
	assert.Equal(t, ErrorTypeServerError, ClassifyError(nil, &http.Response{StatusCode: 503}))
	assert.Equal(t, ErrorTypeRetryableHTTP, ClassifyError(nil, &http.Response{StatusCode: 429}))
	assert.Equal(t, ErrorTypeClientError, ClassifyError(nil, &http.Response{StatusCode: 404}))
	assert.Equal(t, ErrorTypeNone, ClassifyError(nil, &http.Response{StatusCode: 200}))
}

func TestCalculateDelay(t *testing.T) {
	tr := NewTransport(nil, RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}, nil)
	assert.Equal(t, 100*time.Millisecond, tr.calculateDelay(0))
	assert.Equal(t, 200*time.Millisecond, tr.calculateDelay(1))
	assert.Equal(t, 300*time.Millisecond, tr.calculateDelay(2))
}
