package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baiduPage = `<script>window.common = { token: 'tok', }; window.gtk = "320305.131321201";</script>`

// newBaiduServer 把每行译为 "[译]" + 原文
func newBaiduServer(t *testing.T, calls *int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(baiduPage))
	})
	mux.HandleFunc("/v2transapi", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		require.NoError(t, r.ParseForm())
		var data []map[string]string
		for _, line := range strings.Split(r.PostForm.Get("query"), "\n") {
			data = append(data, map[string]string{"dst": "[译]" + line})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"trans_result": map[string]any{"data": data}})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, dir, baseURL string) string {
	path := filepath.Join(dir, "novel-mt.yaml")
	content := fmt.Sprintf(`provider: baidu
stats_path: %s
baidu:
  base_url: %s
retry:
  max_retries: 0
cache:
  type: memory
`, filepath.Join(dir, "stats.json"), baseURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTranslateCommand(t *testing.T) {
	dir := t.TempDir()
	var calls int32
	server := newBaiduServer(t, &calls)
	cfgPath := writeConfig(t, dir, server.URL)

	input := filepath.Join(dir, "chapter.txt")
	output := filepath.Join(dir, "chapter.zh.txt")
	require.NoError(t, os.WriteFile(input, []byte("山田太郎様は言った。\n\nおはよう\n"), 0o644))
	glossaryPath := filepath.Join(dir, "glossary.txt")
	require.NoError(t, os.WriteFile(glossaryPath, []byte("山田太郎=山田太郎\n"), 0o644))

	cmd := NewRootCommand("test", "none", "unknown")
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", cfgPath, "--glossary", glossaryPath, "-q", input, output})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "[译]山田太郎様は言った。\n\n[译]おはよう\n", string(data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = os.Stat(filepath.Join(dir, "stats.json"))
	assert.NoError(t, err, "stats are persisted")

	t.Run("stats command", func(t *testing.T) {
		cmd := NewRootCommand("test", "none", "unknown")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"stats", "--config", cfgPath, "--format", "json"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), `"provider_name": "baidu"`)
		assert.Contains(t, out.String(), `"successful_requests": 1`)
	})

	t.Run("stats reset", func(t *testing.T) {
		cmd := NewRootCommand("test", "none", "unknown")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"stats", "--config", cfgPath, "--reset", "--yes"})
		require.NoError(t, cmd.Execute())

		cmd = NewRootCommand("test", "none", "unknown")
		out.Reset()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"stats", "--config", cfgPath})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "No statistics recorded yet.")
	})
}

func TestTranslateCommandBilingualStdout(t *testing.T) {
	dir := t.TempDir()
	var calls int32
	server := newBaiduServer(t, &calls)
	cfgPath := writeConfig(t, dir, server.URL)

	input := filepath.Join(dir, "chapter.txt")
	require.NoError(t, os.WriteFile(input, []byte("こんにちは\n"), 0o644))

	cmd := NewRootCommand("test", "none", "unknown")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "-q", "--bilingual", input})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "こんにちは\n")
	assert.Contains(t, out.String(), "[译]こんにちは")
}

func TestListProviders(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1")

	cmd := NewRootCommand("test", "none", "unknown")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "--list-providers"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "baidu (jp -> zh)")
	assert.Contains(t, out.String(), "youdao (ja -> zh-CHS)")
}

func TestTranslateCommandRequiresInput(t *testing.T) {
	cmd := NewRootCommand("test", "none", "unknown")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}
