package conf

// Bootstrap 服务启动配置
type Bootstrap struct {
	Server *Server `json:"server"`
	Radar  *Radar  `json:"radar"`
}

// Server 传输层配置
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP HTTP 服务配置
type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

// Radar 报告同步与生成配置
type Radar struct {
	Llm           *LLM         `json:"llm"`
	Search        *Search      `json:"search"`
	Store         *Store       `json:"store"`
	Cache         *Cache       `json:"cache"`
	CutoffHour    *int32       `json:"cutoff_hour"`
	RefreshSecret string       `json:"refresh_secret"`
	Topics        []string     `json:"topics"`
	LookbackDays  int32        `json:"lookback_days"`
	Log           *Log         `json:"log"`
	Concurrency   *Concurrency `json:"concurrency"`
}

// LLM 模型配置
type LLM struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// Search 搜索配置
type Search struct {
	Provider string   `json:"provider"`
	Tavily   *Tavily  `json:"tavily"`
	Searxng  *SearXNG `json:"searxng"`
}

// Tavily Tavily 搜索配置
type Tavily struct {
	ApiKey string `json:"api_key"`
}

// SearXNG SearXNG 搜索配置
type SearXNG struct {
	BaseUrl string `json:"base_url"`
	Timeout int32  `json:"timeout"`
}

// Store 共享 KV 存储配置
type Store struct {
	BaseUrl string `json:"base_url"`
	Timeout int32  `json:"timeout"`
}

// Cache 本地缓存配置
type Cache struct {
	Dir string `json:"dir"`
}

// Log 日志配置
type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Concurrency 并发控制配置
type Concurrency struct {
	Qps int32 `json:"qps"`
	Rpm int32 `json:"rpm"`
}
