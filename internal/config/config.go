package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Store       StoreConfig       `yaml:"store"`
	Cache       CacheConfig       `yaml:"cache"`
	Radar       RadarConfig       `yaml:"radar"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider string        `yaml:"provider"`
	Tavily   TavilyConfig  `yaml:"tavily"`
	SearXNG  SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// StoreConfig 共享 KV 存储配置
type StoreConfig struct {
	// BaseURL 形如 https://kvdb.io/<bucket>，key 直接拼接在其后
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // 秒，0 表示默认
}

// CacheConfig 本地缓存配置
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// RadarConfig 报告同步与生成配置
type RadarConfig struct {
	// CutoffHour 日界切换小时（本地时间）。当前时刻早于该小时则
	// 报告日取昨天，默认 2，即"新内容凌晨两点上线"。
	CutoffHour    *int     `yaml:"cutoff_hour"`
	RefreshSecret string   `yaml:"refresh_secret"` // 手动强制刷新口令
	Topics        []string `yaml:"topics"`
	LookbackDays  int      `yaml:"lookback_days"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DefaultCutoffHour 未配置 cutoff_hour 时使用的日界小时
const DefaultCutoffHour = 2

// CutoffHourOrDefault 返回配置的日界小时，未配置时返回默认值
func (c *RadarConfig) CutoffHourOrDefault() int {
	if c.CutoffHour == nil {
		return DefaultCutoffHour
	}
	return *c.CutoffHour
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
