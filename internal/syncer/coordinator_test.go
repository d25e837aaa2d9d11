package syncer

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/iWorld-y/research_radar/internal/model"
)

// mockCache 内存版本地缓存
type mockCache struct {
	reports map[string]*model.DailyReport
	index   []string
}

func newMockCache() *mockCache {
	return &mockCache{reports: make(map[string]*model.DailyReport)}
}

func (m *mockCache) GetReport(dateKey string) (*model.DailyReport, bool) {
	r, ok := m.reports[dateKey]
	return r, ok
}

func (m *mockCache) PutReport(dateKey string, report *model.DailyReport) error {
	m.reports[dateKey] = report
	return nil
}

func (m *mockCache) LoadIndex() []string { return m.index }

func (m *mockCache) SaveIndex(dates []string) error {
	m.index = dates
	return nil
}

// mockStore 内存版共享存储，记录写入以便断言
type mockStore struct {
	reports    map[string]*model.DailyReport
	index      []string
	count      int
	indexPosts int // 共享索引被写回的次数
}

func newMockStore() *mockStore {
	return &mockStore{reports: make(map[string]*model.DailyReport)}
}

func (m *mockStore) GetReport(ctx context.Context, dateKey string) (*model.DailyReport, bool) {
	r, ok := m.reports[dateKey]
	return r, ok
}

func (m *mockStore) SaveReport(ctx context.Context, dateKey string, report *model.DailyReport) bool {
	m.reports[dateKey] = report
	for _, d := range m.index {
		if d == dateKey {
			return true
		}
	}
	m.index = append(m.index, dateKey)
	sort.Slice(m.index, func(i, j int) bool { return m.index[i] > m.index[j] })
	m.indexPosts++
	return true
}

func (m *mockStore) GetGlobalIndex(ctx context.Context) []string { return m.index }

func (m *mockStore) GetCallCount(ctx context.Context) int { return m.count }

func (m *mockStore) IncrementCallCount(ctx context.Context) int {
	m.count++
	return m.count
}

// mockGenerator 确定性生成器桩件
type mockGenerator struct {
	calls  int
	report *model.DailyReport
	err    error
}

func (m *mockGenerator) Generate(ctx context.Context) (*model.DailyReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	// 每次返回副本，模拟生成器不持有状态
	r := *m.report
	return &r, nil
}

func sampleReport(title string) *model.DailyReport {
	return &model.DailyReport{
		Date: "9999-99-99", // 协调器必须覆盖为边界日键
		TopPapers: []model.PaperSummary{
			{Title: title, Summary: "summary", URL: "https://example.com"},
		},
		DeepDive: model.DeepDive{Title: title},
	}
}

// fixedClock 2024-05-10 10:00 本地时间，边界日为 2024-05-10
func fixedClock() time.Time {
	return time.Date(2024, 5, 10, 10, 0, 0, 0, time.Local)
}

func newTestCoordinator(local *mockCache, store *mockStore, gen *mockGenerator) *Coordinator {
	return New(local, store, gen, WithClock(fixedClock), WithCutoffHour(2))
}

func TestBoundaryDate(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		cutoff int
		want   string
	}{
		{"before cutoff", time.Date(2024, 5, 10, 1, 59, 0, 0, time.Local), 2, "2024-05-09"},
		{"at cutoff", time.Date(2024, 5, 10, 2, 0, 0, 0, time.Local), 2, "2024-05-10"},
		{"after cutoff", time.Date(2024, 5, 10, 23, 30, 0, 0, time.Local), 2, "2024-05-10"},
		{"midnight cutoff", time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local), 0, "2024-05-10"},
		{"month rollover", time.Date(2024, 5, 1, 1, 0, 0, 0, time.Local), 2, "2024-04-30"},
	}
	for _, tt := range tests {
		if got := BoundaryDate(tt.now, tt.cutoff); got != tt.want {
			t.Errorf("%s: BoundaryDate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMergeIndices(t *testing.T) {
	a := []string{"2024-05-08", "2024-05-09"}
	b := []string{"2024-05-09", "2024-05-10"}
	want := []string{"2024-05-10", "2024-05-09", "2024-05-08"}

	if got := MergeIndices(a, b); !reflect.DeepEqual(got, want) {
		t.Errorf("MergeIndices(a, b) = %v, want %v", got, want)
	}
	// 合并满足交换律
	if got := MergeIndices(b, a); !reflect.DeepEqual(got, want) {
		t.Errorf("MergeIndices(b, a) = %v, want %v", got, want)
	}
}

func TestFetchReportLocalHit(t *testing.T) {
	local := newMockCache()
	local.reports["2024-05-10"] = sampleReport("cached")
	store := newMockStore()
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	report, err := co.FetchReport(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}
	if report.DeepDive.Title != "cached" {
		t.Errorf("report = %v, want local cached report", report.DeepDive.Title)
	}
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0", gen.calls)
	}
	if co.Status() != model.StatusCompleted {
		t.Errorf("status = %v, want COMPLETED", co.Status())
	}
}

func TestFetchReportSharedHitCopiesToLocal(t *testing.T) {
	local := newMockCache()
	store := newMockStore()
	store.reports["2024-05-10"] = &model.DailyReport{
		Date:     "2024-05-10",
		DeepDive: model.DeepDive{Title: "shared"},
	}
	store.index = []string{"2024-05-10"}
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	report, err := co.FetchReport(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}
	if report.DeepDive.Title != "shared" {
		t.Errorf("report = %v, want shared report", report.DeepDive.Title)
	}
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0", gen.calls)
	}
	if _, ok := local.reports["2024-05-10"]; !ok {
		t.Error("shared hit was not copied into local cache")
	}
}

func TestFetchReportGeneratesOnTotalMiss(t *testing.T) {
	local := newMockCache()
	store := newMockStore()
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	report, err := co.FetchReport(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	// 日期与生成时刻由协调器盖戳
	if report.Date != "2024-05-10" {
		t.Errorf("report.Date = %v, want 2024-05-10", report.Date)
	}
	if want := fixedClock().UnixMilli(); report.GeneratedAt != want {
		t.Errorf("report.GeneratedAt = %v, want %v", report.GeneratedAt, want)
	}
	// 两级缓存都已写入，计数器恰好 +1
	if _, ok := local.reports["2024-05-10"]; !ok {
		t.Error("generated report missing from local cache")
	}
	if _, ok := store.reports["2024-05-10"]; !ok {
		t.Error("generated report missing from shared store")
	}
	if store.count != 1 {
		t.Errorf("call count = %d, want 1", store.count)
	}
	if co.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", co.CallCount())
	}
}

func TestFetchReportIdempotent(t *testing.T) {
	local := newMockCache()
	store := newMockStore()
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	ctx := context.Background()
	if _, err := co.FetchReport(ctx, false); err != nil {
		t.Fatalf("first FetchReport() error = %v", err)
	}
	if _, err := co.FetchReport(ctx, false); err != nil {
		t.Fatalf("second FetchReport() error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1 (no duplicate generation)", gen.calls)
	}
	if store.count != 1 {
		t.Errorf("call count = %d, want 1", store.count)
	}
}

func TestForceRefreshRegenerates(t *testing.T) {
	local := newMockCache()
	local.reports["2024-05-10"] = sampleReport("stale")
	store := newMockStore()
	store.reports["2024-05-10"] = sampleReport("stale")
	gen := &mockGenerator{report: sampleReport("fresh")}
	co := newTestCoordinator(local, store, gen)

	report, err := co.FetchReport(context.Background(), true)
	if err != nil {
		t.Fatalf("FetchReport(force) error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if report.DeepDive.Title != "fresh" {
		t.Errorf("report = %v, want regenerated report", report.DeepDive.Title)
	}
	// 同一日期键下的两份缓存都被覆盖
	if local.reports["2024-05-10"].DeepDive.Title != "fresh" {
		t.Error("local cache not overwritten by forced refresh")
	}
	if store.reports["2024-05-10"].DeepDive.Title != "fresh" {
		t.Error("shared store not overwritten by forced refresh")
	}
}

func TestFetchReportGenerationFailure(t *testing.T) {
	local := newMockCache()
	store := newMockStore()
	gen := &mockGenerator{err: errors.New("model call exploded")}
	co := newTestCoordinator(local, store, gen)

	if _, err := co.FetchReport(context.Background(), false); err == nil {
		t.Fatal("FetchReport() error = nil, want generation failure")
	}
	if co.Status() != model.StatusError {
		t.Errorf("status = %v, want ERROR", co.Status())
	}
	if !strings.Contains(co.LastError(), "model call exploded") {
		t.Errorf("LastError() = %q, want underlying message", co.LastError())
	}
	if store.count != 0 {
		t.Errorf("call count = %d, want 0 after failed generation", store.count)
	}
	// 失败后再次尝试会从 SEARCHING 重新开始
	gen.err = nil
	gen.report = sampleReport("recovered")
	if _, err := co.FetchReport(context.Background(), false); err != nil {
		t.Fatalf("retry FetchReport() error = %v", err)
	}
	if co.Status() != model.StatusCompleted {
		t.Errorf("status after retry = %v, want COMPLETED", co.Status())
	}
}

func TestSyncRewritesLocalIndexOnly(t *testing.T) {
	local := newMockCache()
	local.index = []string{"2024-05-08"}
	local.reports["2024-05-10"] = sampleReport("cached")
	store := newMockStore()
	store.index = []string{"2024-05-09", "2024-05-10"}
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	if _, err := co.FetchReport(context.Background(), false); err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}

	want := []string{"2024-05-10", "2024-05-09", "2024-05-08"}
	if !reflect.DeepEqual(local.index, want) {
		t.Errorf("local index = %v, want merged %v", local.index, want)
	}
	if !reflect.DeepEqual(co.Dates(), want) {
		t.Errorf("Dates() = %v, want %v", co.Dates(), want)
	}
	// 仅查看不发布：共享索引不因同步被写回
	if store.indexPosts != 0 {
		t.Errorf("shared index posts = %d, want 0 (publish on write only)", store.indexPosts)
	}
}

func TestNavigateToDateLocalAndSharedHit(t *testing.T) {
	local := newMockCache()
	local.reports["2024-05-10"] = sampleReport("local")
	store := newMockStore()
	store.reports["2024-05-09"] = &model.DailyReport{
		Date:     "2024-05-09",
		DeepDive: model.DeepDive{Title: "older"},
	}
	store.index = []string{"2024-05-10", "2024-05-09"}
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	ctx := context.Background()
	report, err := co.NavigateToDate(ctx, 0)
	if err != nil {
		t.Fatalf("NavigateToDate(0) error = %v", err)
	}
	if report.DeepDive.Title != "local" {
		t.Errorf("report = %v, want local hit", report.DeepDive.Title)
	}

	report, err = co.NavigateToDate(ctx, 1)
	if err != nil {
		t.Fatalf("NavigateToDate(1) error = %v", err)
	}
	if report.DeepDive.Title != "older" {
		t.Errorf("report = %v, want shared hit", report.DeepDive.Title)
	}
	if _, ok := local.reports["2024-05-09"]; !ok {
		t.Error("shared navigation hit was not copied into local cache")
	}
	// 导航绝不触发生成
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0", gen.calls)
	}
}

func TestNavigateToDateMiss(t *testing.T) {
	local := newMockCache()
	store := newMockStore()
	store.index = []string{"2024-05-07"}
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	_, err := co.NavigateToDate(context.Background(), 0)
	if err == nil {
		t.Fatal("NavigateToDate() error = nil, want miss")
	}
	if !strings.Contains(err.Error(), "2024-05-07") {
		t.Errorf("error = %q, want message naming the missing date", err)
	}
	if co.Status() != model.StatusError {
		t.Errorf("status = %v, want ERROR", co.Status())
	}
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0", gen.calls)
	}
}

func TestNavigateToDateOutOfRange(t *testing.T) {
	local := newMockCache()
	store := newMockStore()
	gen := &mockGenerator{report: sampleReport("generated")}
	co := newTestCoordinator(local, store, gen)

	if _, err := co.NavigateToDate(context.Background(), 5); err == nil {
		t.Fatal("NavigateToDate(5) error = nil, want out of range")
	}
	if co.Status() != model.StatusError {
		t.Errorf("status = %v, want ERROR", co.Status())
	}
}
