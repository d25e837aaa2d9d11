// Package syncer 实现报告同步协调器：对给定的边界日，决定复用本地
// 缓存、拉取共享存储中的既有报告，还是触发昂贵的生成调用，并在无
// 协调后端的前提下维护多用户共享索引与调用计数的最终一致。
package syncer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iWorld-y/research_radar/internal/cache"
	"github.com/iWorld-y/research_radar/internal/generator"
	"github.com/iWorld-y/research_radar/internal/logger"
	"github.com/iWorld-y/research_radar/internal/model"
)

// SharedStore 共享存储能力接口，由 kvstore.Client 实现。
// 所有读操作软失败，所有写操作整体覆盖。
type SharedStore interface {
	GetReport(ctx context.Context, dateKey string) (*model.DailyReport, bool)
	SaveReport(ctx context.Context, dateKey string, report *model.DailyReport) bool
	GetGlobalIndex(ctx context.Context) []string
	GetCallCount(ctx context.Context) int
	IncrementCallCount(ctx context.Context) int
}

// Coordinator 同步协调器。单个实例内的所有 I/O 顺序执行，
// 并发只发生在多个客户端之间。
type Coordinator struct {
	local      cache.Cache
	shared     SharedStore
	gen        generator.Generator
	cutoffHour int
	now        func() time.Time

	mu        sync.Mutex
	status    model.Status
	lastErr   string
	dates     []string
	callCount int
}

// Option 协调器可选配置
type Option func(*Coordinator)

// WithClock 注入时钟，用于测试日界规则
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithCutoffHour 设置日界切换小时（本地时间）
func WithCutoffHour(hour int) Option {
	return func(c *Coordinator) { c.cutoffHour = hour }
}

// New 创建同步协调器，默认日界为凌晨 2 点
func New(local cache.Cache, shared SharedStore, gen generator.Generator, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:      local,
		shared:     shared,
		gen:        gen,
		cutoffHour: 2,
		now:        time.Now,
		status:     model.StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BoundaryDate 计算当前逻辑报告日。当前本地时间早于切换小时则取
// 昨天的日期，否则取今天，模拟"新内容凌晨上线"而非零点切换。
func BoundaryDate(now time.Time, cutoffHour int) string {
	if now.Hour() < cutoffHour {
		now = now.AddDate(0, 0, -1)
	}
	return now.Format(time.DateOnly)
}

// MergeIndices 合并两份日期索引：取并集、去重、降序排列。
// 合并满足交换律，与调用顺序无关。
func MergeIndices(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var merged []string
	for _, d := range a {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			merged = append(merged, d)
		}
	}
	for _, d := range b {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			merged = append(merged, d)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] > merged[j] })
	return merged
}

// FetchReport 解析"当前应展示的报告"。forceRefresh 为 true 时跳过
// 两级缓存查找，总是重新生成并覆盖同一日期键下的两份缓存。
func (c *Coordinator) FetchReport(ctx context.Context, forceRefresh bool) (*model.DailyReport, error) {
	c.setStatus(model.StatusSearching)

	c.syncIndex(ctx)
	dateKey := BoundaryDate(c.now(), c.cutoffHour)

	if !forceRefresh {
		if report, ok := c.local.GetReport(dateKey); ok {
			c.syncIndex(ctx)
			c.setStatus(model.StatusCompleted)
			return report, nil
		}
		if report, ok := c.shared.GetReport(ctx, dateKey); ok {
			if err := c.local.PutReport(dateKey, report); err != nil {
				logger.Log.Warnf("共享报告写入本地缓存失败 [%s]: %v", dateKey, err)
			}
			c.syncIndex(ctx)
			c.setStatus(model.StatusCompleted)
			return report, nil
		}
	}

	c.setStatus(model.StatusAnalyzing)
	report, err := c.gen.Generate(ctx)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	if report.Empty() {
		err := fmt.Errorf("generator returned empty payload")
		c.fail(err)
		return nil, err
	}

	// 以解析出的边界日键与当前时刻盖戳，不信任生成器给出的值
	report.Date = dateKey
	report.GeneratedAt = c.now().UnixMilli()

	// 共享写入的副作用会追加共享索引；写失败静默降级为仅本地
	if !c.shared.SaveReport(ctx, dateKey, report) {
		logger.Log.Warnf("共享存储写入失败，报告仅保留在本地 [%s]", dateKey)
	}

	if n := c.shared.IncrementCallCount(ctx); n > 0 {
		c.mu.Lock()
		c.callCount = n
		c.mu.Unlock()
	}

	if err := c.local.PutReport(dateKey, report); err != nil {
		logger.Log.Warnf("本地缓存写入失败 [%s]: %v", dateKey, err)
	}

	c.syncIndex(ctx)
	c.setStatus(model.StatusCompleted)
	return report, nil
}

// NavigateToDate 按合并索引中的位置取历史报告：本地缓存优先，其次
// 共享存储；两者都没有则报错并指明缺失日期。导航绝不触发生成。
func (c *Coordinator) NavigateToDate(ctx context.Context, index int) (*model.DailyReport, error) {
	c.setStatus(model.StatusSearching)

	dates := c.Dates()
	if len(dates) == 0 {
		dates = c.syncIndex(ctx)
	}
	if index < 0 || index >= len(dates) {
		err := fmt.Errorf("date index %d out of range (%d known dates)", index, len(dates))
		c.fail(err)
		return nil, err
	}
	dateKey := dates[index]

	if report, ok := c.local.GetReport(dateKey); ok {
		c.setStatus(model.StatusCompleted)
		return report, nil
	}
	if report, ok := c.shared.GetReport(ctx, dateKey); ok {
		if err := c.local.PutReport(dateKey, report); err != nil {
			logger.Log.Warnf("共享报告写入本地缓存失败 [%s]: %v", dateKey, err)
		}
		c.setStatus(model.StatusCompleted)
		return report, nil
	}

	err := fmt.Errorf("report for %s is not available in any cache", dateKey)
	c.fail(err)
	return nil, err
}

// syncIndex 合并本地与共享索引，本地索引总是被重写为合并结果，
// 同时刷新全局调用计数。合并结果绝不回写共享索引——只有生成写入
// （SaveReport 的副作用）才会向全局发布新日期。
func (c *Coordinator) syncIndex(ctx context.Context) []string {
	merged := MergeIndices(c.local.LoadIndex(), c.shared.GetGlobalIndex(ctx))
	if err := c.local.SaveIndex(merged); err != nil {
		logger.Log.Warnf("本地索引重写失败: %v", err)
	}

	count := c.shared.GetCallCount(ctx)

	c.mu.Lock()
	c.dates = merged
	if count > c.callCount {
		c.callCount = count
	}
	c.mu.Unlock()
	return merged
}

// Status 返回当前状态机状态
func (c *Coordinator) Status() model.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError 返回最近一次进入 ERROR 状态的消息，非 ERROR 态为空串
func (c *Coordinator) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Dates 返回最近一次同步得到的合并日期索引（降序）
func (c *Coordinator) Dates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	dates := make([]string, len(c.dates))
	copy(dates, c.dates)
	return dates
}

// CallCount 返回最近观测到的全局生成调用计数
func (c *Coordinator) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callCount
}

func (c *Coordinator) setStatus(s model.Status) {
	c.mu.Lock()
	c.status = s
	if s != model.StatusError {
		c.lastErr = ""
	}
	c.mu.Unlock()
}

func (c *Coordinator) fail(err error) {
	logger.Log.Errorf("同步失败: %v", err)
	c.mu.Lock()
	c.status = model.StatusError
	c.lastErr = err.Error()
	c.mu.Unlock()
}
