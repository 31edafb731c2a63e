package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProviderStats 后端请求统计
type ProviderStats struct {
	ProviderName       string           `json:"provider_name"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	LinesSent          int64            `json:"lines_sent"`
	CharsSent          int64            `json:"chars_sent"`
	CharsReceived      int64            `json:"chars_received"`
	ErrorKinds         map[string]int64 `json:"error_kinds"`

	AverageLatency time.Duration `json:"average_latency"`
	MinLatency     time.Duration `json:"min_latency"`
	MaxLatency     time.Duration `json:"max_latency"`
	TotalLatency   time.Duration `json:"total_latency"`

	FirstRequestTime time.Time `json:"first_request_time"`
	LastRequestTime  time.Time `json:"last_request_time"`
}

// SuccessRate 成功率（百分比）
func (ps ProviderStats) SuccessRate() float64 {
	if ps.TotalRequests == 0 {
		return 0
	}
	return float64(ps.SuccessfulRequests) / float64(ps.TotalRequests) * 100
}

// RequestResult 单次分段请求结果
type RequestResult struct {
	Success       bool
	Latency       time.Duration
	Lines         int
	CharsSent     int
	CharsReceived int
	ErrorKind     string
}

// Manager 统计管理器
type Manager struct {
	stats  map[string]*ProviderStats
	dbPath string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewManager 创建统计管理器，dbPath 为空时只在内存中统计
func NewManager(dbPath string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		stats:  make(map[string]*ProviderStats),
		dbPath: dbPath,
		logger: logger,
	}
}

// RecordRequest 记录请求结果
func (m *Manager) RecordRequest(provider string, result RequestResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps, ok := m.stats[provider]
	if !ok {
		ps = &ProviderStats{
			ProviderName: provider,
			ErrorKinds:   make(map[string]int64),
		}
		m.stats[provider] = ps
	}

	now := time.Now()
	if ps.FirstRequestTime.IsZero() {
		ps.FirstRequestTime = now
	}
	ps.LastRequestTime = now

	ps.TotalRequests++
	ps.LinesSent += int64(result.Lines)
	ps.CharsSent += int64(result.CharsSent)
	if result.Success {
		ps.SuccessfulRequests++
		ps.CharsReceived += int64(result.CharsReceived)
	} else {
		ps.FailedRequests++
		if result.ErrorKind != "" {
			ps.ErrorKinds[result.ErrorKind]++
		}
	}

	ps.TotalLatency += result.Latency
	if ps.MinLatency == 0 || result.Latency < ps.MinLatency {
		ps.MinLatency = result.Latency
	}
	if result.Latency > ps.MaxLatency {
		ps.MaxLatency = result.Latency
	}
	ps.AverageLatency = ps.TotalLatency / time.Duration(ps.TotalRequests)
}

// Get 获取指定后端统计的副本
func (m *Manager) Get(provider string) (ProviderStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps, ok := m.stats[provider]
	if !ok {
		return ProviderStats{}, false
	}
	return copyStats(ps), true
}

// All 按名称排序返回所有统计
func (m *Manager) All() []ProviderStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProviderStats, 0, len(m.stats))
	for _, ps := range m.stats {
		out = append(out, copyStats(ps))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProviderName < out[j].ProviderName
	})
	return out
}

// Reset 清空统计
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = make(map[string]*ProviderStats)
}

// Load 从文件加载历史统计，文件不存在时忽略
func (m *Manager) Load() error {
	if m.dbPath == "" {
		return nil
	}

	data, err := os.ReadFile(m.dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var loaded map[string]*ProviderStats
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse stats file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, ps := range loaded {
		if ps.ErrorKinds == nil {
			ps.ErrorKinds = make(map[string]int64)
		}
		m.stats[name] = ps
	}
	m.logger.Debug("stats loaded", zap.String("path", m.dbPath), zap.Int("providers", len(loaded)))
	return nil
}

// Save 保存统计到文件
func (m *Manager) Save() error {
	if m.dbPath == "" {
		return nil
	}

	m.mu.Lock()
	data, err := json.MarshalIndent(m.stats, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create stats dir: %w", err)
	}
	if err := os.WriteFile(m.dbPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}

func copyStats(ps *ProviderStats) ProviderStats {
	c := *ps
	c.ErrorKinds = make(map[string]int64, len(ps.ErrorKinds))
	for k, v := range ps.ErrorKinds {
		c.ErrorKinds[k] = v
	}
	return c
}
