package stats

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	manager := NewManager("", nil)
	fail := false
	backend := translation.SegmentFunc(func(_ context.Context, lines []string) ([]string, error) {
		if fail {
			return nil, translation.NewError(translation.KindAuthExpired, "baidu", "997", nil)
		}
		return []string{"你好"}, nil
	})
	mw := NewMiddleware(backend, manager, "baidu")

	_, err := mw.TranslateSegment(context.Background(), []string{"こんにちは"})
	require.NoError(t, err)

	fail = true
	_, err = mw.TranslateSegment(context.Background(), []string{"こんにちは"})
	require.Error(t, err)

	ps, ok := manager.Get("baidu")
	require.True(t, ok)
	assert.Equal(t, int64(2), ps.TotalRequests)
	assert.Equal(t, int64(1), ps.SuccessfulRequests)
	assert.Equal(t, int64(1), ps.FailedRequests)
	assert.Equal(t, int64(10), ps.CharsSent)
	assert.Equal(t, int64(2), ps.CharsReceived)
	assert.Equal(t, int64(1), ps.ErrorKinds["auth_expired"])
	assert.InDelta(t, 50.0, ps.SuccessRate(), 0.001)
}

func TestManagerSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats", "providers.json")

	m := NewManager(path, nil)
	m.RecordRequest("youdao", RequestResult{Success: true, Lines: 3, CharsSent: 30, CharsReceived: 20})
	m.RecordRequest("baidu", RequestResult{Success: false, Lines: 1, ErrorKind: "network_error"})
	require.NoError(t, m.Save())

	loaded := NewManager(path, nil)
	require.NoError(t, loaded.Load())

	all := loaded.All()
	require.Len(t, all, 2)
	assert.Equal(t, "baidu", all[0].ProviderName)
	assert.Equal(t, int64(1), all[0].ErrorKinds["network_error"])
	assert.Equal(t, "youdao", all[1].ProviderName)
	assert.Equal(t, int64(20), all[1].CharsReceived)

	loaded.Reset()
	assert.Empty(t, loaded.All())
}

func TestManagerLoadMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "none.json"), nil)
	assert.NoError(t, m.Load())
	assert.Empty(t, m.All())
}
