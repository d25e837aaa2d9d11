package server

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_radar/internal/cache"
	"github.com/iWorld-y/research_radar/internal/conf"
	"github.com/iWorld-y/research_radar/internal/config"
	"github.com/iWorld-y/research_radar/internal/generator"
	"github.com/iWorld-y/research_radar/internal/kvstore"
	radarLogger "github.com/iWorld-y/research_radar/internal/logger"
	"github.com/iWorld-y/research_radar/internal/syncer"
)

// NewRadarConfig 将 internal/conf.Radar 转换为 internal/config.Config
func NewRadarConfig(c *conf.Radar) *config.Config {
	cfg := &config.Config{
		LLM: config.LLMConfig{
			BaseURL: c.Llm.BaseUrl,
			APIKey:  c.Llm.ApiKey,
			Model:   c.Llm.Model,
		},
		Store: config.StoreConfig{
			BaseURL: c.Store.BaseUrl,
			Timeout: int(c.Store.Timeout),
		},
		Cache: config.CacheConfig{
			Dir: c.Cache.Dir,
		},
		Radar: config.RadarConfig{
			RefreshSecret: c.RefreshSecret,
			Topics:        c.Topics,
			LookbackDays:  int(c.LookbackDays),
		},
		Log: config.LogConfig{
			Level: c.Log.Level,
			File:  c.Log.File,
		},
		Concurrency: config.ConcurrencyConfig{
			QPS: int(c.Concurrency.Qps),
			RPM: int(c.Concurrency.Rpm),
		},
	}
	if c.CutoffHour != nil {
		hour := int(*c.CutoffHour)
		cfg.Radar.CutoffHour = &hour
	}
	if c.Search != nil {
		cfg.Search.Provider = c.Search.Provider
		if c.Search.Tavily != nil {
			cfg.Search.Tavily.APIKey = c.Search.Tavily.ApiKey
		}
		if c.Search.Searxng != nil {
			cfg.Search.SearXNG.BaseURL = c.Search.Searxng.BaseUrl
			cfg.Search.SearXNG.Timeout = int(c.Search.Searxng.Timeout)
		}
	}
	return cfg
}

// NewCoordinator 初始化同步协调器及其全部依赖
func NewCoordinator(c *conf.Radar, logger log.Logger) (*syncer.Coordinator, func(), error) {
	helper := log.NewHelper(logger)
	cfg := NewRadarConfig(c)

	if err := radarLogger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("Failed to init radar logger: %v", err)
		_ = radarLogger.Init("info", "") // 降级处理
	}

	local, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		helper.Errorf("Failed to init local cache: %v", err)
		return nil, nil, err
	}

	store := kvstore.NewClient(cfg.Store.BaseURL, cfg.Store.Timeout)

	gen, err := generator.NewLLMGenerator(cfg)
	if err != nil {
		helper.Errorf("Failed to init generator: %v", err)
		return nil, nil, err
	}

	co := syncer.New(local, store, gen,
		syncer.WithCutoffHour(cfg.Radar.CutoffHourOrDefault()))

	cleanup := func() {
		helper.Info("Cleaning up radar coordinator")
	}
	return co, cleanup, nil
}
