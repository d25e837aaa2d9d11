// 一次性生成命令：适合 cron 定时触发，在日界切换后预生成当日报告，
// 让后续打开页面的用户直接命中共享存储。
package main

import (
	"context"
	"flag"
	"log"

	"github.com/iWorld-y/research_radar/internal/cache"
	"github.com/iWorld-y/research_radar/internal/config"
	"github.com/iWorld-y/research_radar/internal/generator"
	"github.com/iWorld-y/research_radar/internal/kvstore"
	"github.com/iWorld-y/research_radar/internal/logger"
	"github.com/iWorld-y/research_radar/internal/syncer"
)

func main() {
	confPath := flag.String("conf", "configs/radar.yaml", "config path")
	force := flag.Bool("force", false, "regenerate even if a report exists for the boundary day")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if cfg.Store.BaseURL == "" {
		log.Fatal("配置错误: 未设置 store.base_url")
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动一次性报告生成...")

	ctx := context.Background()

	// 3. 初始化依赖
	local, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		logger.Log.Fatalf("本地缓存初始化失败: %v", err)
	}
	store := kvstore.NewClient(cfg.Store.BaseURL, cfg.Store.Timeout)

	gen, err := generator.NewLLMGenerator(cfg)
	if err != nil {
		logger.Log.Fatalf("生成器初始化失败: %v", err)
	}

	co := syncer.New(local, store, gen,
		syncer.WithCutoffHour(cfg.Radar.CutoffHourOrDefault()))

	// 4. 解析当日报告，缺失时生成
	report, err := co.FetchReport(ctx, *force)
	if err != nil {
		logger.Log.Fatalf("报告获取失败: %v", err)
	}

	logger.Log.Infof("报告就绪 [%s]: %d 篇论文, 深度解读《%s》, 全局调用计数 %d",
		report.Date, len(report.TopPapers), report.DeepDive.Title, co.CallCount())
}
