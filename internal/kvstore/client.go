// Package kvstore 封装公共 KV REST 存储（kvdb.io 形态）的访问。
// 该存储是全体用户共享的记录系统：读接口全部软失败——传输错误、
// 非 200 状态码、响应体损坏一律折算为"不存在"/零值，绝不向上抛错，
// 由调用方静默降级为仅本地行为。
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/research_radar/internal/logger"
	"github.com/iWorld-y/research_radar/internal/model"
)

const (
	reportKeyPrefix = "report_"
	indexKey        = "report_index"
	callCountKey    = "api_call_count"
)

// Client 共享存储客户端。不持有任何本地状态，每个操作都是一次网络调用。
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient 创建共享存储客户端。baseURL 形如 https://kvdb.io/<bucket>，
// timeout 单位为秒，0 表示默认 30 秒。
func NewClient(baseURL string, timeout int) *Client {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: t},
	}
}

// ReportKey 返回日期键对应的存储键名
func ReportKey(dateKey string) string {
	return reportKeyPrefix + dateKey
}

// GetReport 从共享存储获取指定日期的报告。
// 缺失与失败同义：均返回 (nil, false)。
func (c *Client) GetReport(ctx context.Context, dateKey string) (*model.DailyReport, bool) {
	body, err := c.get(ctx, ReportKey(dateKey))
	if err != nil {
		logger.Log.Warnf("共享存储读取报告失败 [%s]: %v", dateKey, err)
		return nil, false
	}

	var report model.DailyReport
	if err := json.Unmarshal(body, &report); err != nil {
		logger.Log.Warnf("共享存储报告解析失败 [%s]: %v", dateKey, err)
		return nil, false
	}
	return &report, true
}

// SaveReport 整体覆盖写入报告，并追加共享索引（副作用）。
// 任何传输失败返回 false，不做重试。
func (c *Client) SaveReport(ctx context.Context, dateKey string, report *model.DailyReport) bool {
	payload, err := json.Marshal(report)
	if err != nil {
		logger.Log.Errorf("报告序列化失败 [%s]: %v", dateKey, err)
		return false
	}

	if err := c.put(ctx, ReportKey(dateKey), payload); err != nil {
		logger.Log.Errorf("共享存储写入报告失败 [%s]: %v", dateKey, err)
		return false
	}

	c.AddToGlobalIndex(ctx, dateKey)
	return true
}

// GetGlobalIndex 获取共享日期索引（降序）。失败时返回空列表。
func (c *Client) GetGlobalIndex(ctx context.Context) []string {
	body, err := c.get(ctx, indexKey)
	if err != nil {
		logger.Log.Warnf("共享索引读取失败: %v", err)
		return nil
	}

	var index []string
	if err := json.Unmarshal(body, &index); err != nil {
		logger.Log.Warnf("共享索引解析失败: %v", err)
		return nil
	}
	return index
}

// AddToGlobalIndex 读-改-写共享索引：取当前列表，键不存在时插入、
// 降序重排并整体写回。非原子操作，并发写入者可能互相覆盖（最后写入者
// 获胜），依赖下次读取时与本地索引的再合并自愈。
func (c *Client) AddToGlobalIndex(ctx context.Context, dateKey string) {
	index := c.GetGlobalIndex(ctx)
	for _, d := range index {
		if d == dateKey {
			return
		}
	}

	index = append(index, dateKey)
	sort.Slice(index, func(i, j int) bool { return index[i] > index[j] })

	payload, err := json.Marshal(index)
	if err != nil {
		logger.Log.Errorf("共享索引序列化失败: %v", err)
		return
	}
	if err := c.put(ctx, indexKey, payload); err != nil {
		logger.Log.Warnf("共享索引写回失败: %v", err)
	}
}

// GetCallCount 获取全局生成调用计数。失败时返回 0。
func (c *Client) GetCallCount(ctx context.Context) int {
	body, err := c.get(ctx, callCountKey)
	if err != nil {
		logger.Log.Warnf("调用计数读取失败: %v", err)
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// IncrementCallCount 读-改-写全局计数，返回新值，失败时返回 0。
// 非原子操作：并发自增可能丢失一次计数，这是一个尽力而为的近似计数器。
func (c *Client) IncrementCallCount(ctx context.Context) int {
	next := c.GetCallCount(ctx) + 1
	if err := c.put(ctx, callCountKey, []byte(strconv.Itoa(next))); err != nil {
		logger.Log.Warnf("调用计数写回失败: %v", err)
		return 0
	}
	return next
}

// get 执行 GET /{key}，非 200 状态视为键不存在
func (c *Client) get(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key %q absent (status %d)", key, res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	return body, nil
}

// put 执行 POST /{key}，整体覆盖键对应的值
func (c *Client) put(ctx context.Context, key string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("store rejected write (status %d)", res.StatusCode)
	}
	return nil
}
