package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/iWorld-y/research_radar/internal/logger"
	"github.com/iWorld-y/research_radar/internal/model"
)

const indexFileName = "index.json"

// FileCache 基于目录的本地缓存：每份报告一个 JSON 文件，
// 外加一个索引文件。
type FileCache struct {
	dir string
	mu  sync.RWMutex
}

var _ Cache = (*FileCache)(nil)

// NewFileCache 创建本地文件缓存，目录不存在时自动建立
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir failed: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) reportPath(dateKey string) string {
	return filepath.Join(c.dir, "report_"+dateKey+".json")
}

// GetReport 读取本地缓存的报告。文件缺失或损坏均视为未命中。
func (c *FileCache) GetReport(dateKey string) (*model.DailyReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.reportPath(dateKey))
	if err != nil {
		return nil, false
	}

	var report model.DailyReport
	if err := json.Unmarshal(data, &report); err != nil {
		logger.Log.Warnf("本地缓存报告损坏 [%s]: %v", dateKey, err)
		return nil, false
	}
	return &report, true
}

// PutReport 整体覆盖写入报告
func (c *FileCache) PutReport(dateKey string, report *model.DailyReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report failed: %w", err)
	}
	if err := os.WriteFile(c.reportPath(dateKey), data, 0o644); err != nil {
		return fmt.Errorf("write report failed: %w", err)
	}
	return nil
}

// LoadIndex 读取本地索引，缺失或损坏时返回空列表
func (c *FileCache) LoadIndex() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(c.dir, indexFileName))
	if err != nil {
		return nil
	}

	var index []string
	if err := json.Unmarshal(data, &index); err != nil {
		logger.Log.Warnf("本地索引损坏: %v", err)
		return nil
	}
	return index
}

// SaveIndex 整体重写本地索引，每次同步后都会被写为合并结果
func (c *FileCache) SaveIndex(dates []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(dates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index failed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, indexFileName), data, 0o644); err != nil {
		return fmt.Errorf("write index failed: %w", err)
	}
	return nil
}
