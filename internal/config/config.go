package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BaiduConfig 百度翻译配置
type BaiduConfig struct {
	BaseURL string `mapstructure:"base_url"`
	From    string `mapstructure:"from"`
	To      string `mapstructure:"to"`
}

// YoudaoConfig 有道翻译配置
type YoudaoConfig struct {
	DictURL    string `mapstructure:"dict_url"`
	RlogURL    string `mapstructure:"rlog_url"`
	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
	DefaultKey string `mapstructure:"default_key"`
	SkipRlog   bool   `mapstructure:"skip_rlog"`
}

// RetryConfig 传输层重试配置
type RetryConfig struct {
	MaxRetries     int     `mapstructure:"max_retries"`
	InitialDelayMs int     `mapstructure:"initial_delay_ms"`
	MaxDelayMs     int     `mapstructure:"max_delay_ms"`
	BackoffFactor  float64 `mapstructure:"backoff_factor"`
}

// RateLimitConfig 请求频率限制
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// CacheConfig 分段缓存配置
type CacheConfig struct {
	Type      string        `mapstructure:"type"` // none / memory / file / redis
	Dir       string        `mapstructure:"dir"`
	RedisURL  string        `mapstructure:"redis_url"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// Config 保存翻译器的所有配置
type Config struct {
	Provider       string `mapstructure:"provider"`
	SegmentSize    int    `mapstructure:"segment_size"`
	GlossaryPath   string `mapstructure:"glossary_path"`
	MarkerPolicy   string `mapstructure:"marker_policy"`
	Encoding       string `mapstructure:"encoding"`
	LogLevel       string `mapstructure:"log_level"`
	Debug          bool   `mapstructure:"debug"`
	RequestTimeout int    `mapstructure:"request_timeout"` // 秒
	ProxyURL       string `mapstructure:"proxy_url"`
	StatsPath      string `mapstructure:"stats_path"`

	Baidu     BaiduConfig     `mapstructure:"baidu"`
	Youdao    YoudaoConfig    `mapstructure:"youdao"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// LoadConfig 从文件加载配置
//
// configPath 为空时在家目录和当前目录查找 .novel-mt.yaml，找不到则使用默认值。
// 环境变量以 NOVELMT_ 为前缀，例如 NOVELMT_CACHE_TYPE。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".novel-mt")
		v.SetConfigType("yaml")
	}

	// 读取环境变量
	v.SetEnvPrefix("NOVELMT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，则使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 默认值总能解析
	_ = v.Unmarshal(&config)
	return &config
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Provider {
	case "baidu", "youdao":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.SegmentSize <= 0 {
		return fmt.Errorf("segment_size must be positive, got %d", c.SegmentSize)
	}
	switch strings.ToLower(c.MarkerPolicy) {
	case "", "target", "token":
	default:
		return fmt.Errorf("unknown marker_policy %q", c.MarkerPolicy)
	}
	switch c.Cache.Type {
	case "", "none", "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}
	if c.Cache.Type == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required for redis cache")
	}
	return nil
}

// Timeout 请求超时
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	cacheDir := getDefaultCacheDir()

	v.SetDefault("provider", "baidu")
	v.SetDefault("segment_size", 2000)
	v.SetDefault("glossary_path", "")
	v.SetDefault("marker_policy", "target")
	v.SetDefault("encoding", "auto")
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)
	v.SetDefault("request_timeout", 30)
	v.SetDefault("proxy_url", "")
	v.SetDefault("stats_path", filepath.Join(cacheDir, "stats.json"))

	v.SetDefault("baidu.base_url", "https://fanyi.baidu.com")
	v.SetDefault("baidu.from", "jp")
	v.SetDefault("baidu.to", "zh")

	v.SetDefault("youdao.dict_url", "https://dict.youdao.com")
	v.SetDefault("youdao.rlog_url", "https://rlogs.youdao.com/rlog.php")
	v.SetDefault("youdao.from", "ja")
	v.SetDefault("youdao.to", "zh-CHS")
	v.SetDefault("youdao.default_key", "fsdsogkndfokasodnaso")
	v.SetDefault("youdao.skip_rlog", false)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay_ms", 200)
	v.SetDefault("retry.max_delay_ms", 5000)
	v.SetDefault("retry.backoff_factor", 2.0)

	v.SetDefault("rate_limit.requests_per_minute", 0)
	v.SetDefault("rate_limit.burst", 1)

	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.dir", filepath.Join(cacheDir, "segments"))
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "168h")
	v.SetDefault("cache.key_prefix", "novelmt:")
}

// getDefaultCacheDir 获取默认缓存目录
func getDefaultCacheDir() string {
	// 优先使用系统缓存目录
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		return filepath.Join(cacheDir, "novel-mt")
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(homeDir, ".novel-mt", "cache")
	}

	return "./novel-mt-cache"
}
