// Package cache 提供报告的本地缓存层，镜像共享存储的子集以加速重载。
// 本地缓存由单个客户端独占，仅被同步协调器修改。
package cache

import "github.com/iWorld-y/research_radar/internal/model"

// Cache 单层报告缓存接口
type Cache interface {
	// GetReport 按日期键读取缓存报告，缺失返回 (nil, false)
	GetReport(dateKey string) (*model.DailyReport, bool)
	// PutReport 按日期键整体写入报告
	PutReport(dateKey string, report *model.DailyReport) error
	// LoadIndex 读取本地缓存的合并日期索引（降序）
	LoadIndex() []string
	// SaveIndex 整体重写本地日期索引
	SaveIndex(dates []string) error
}
