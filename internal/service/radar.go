package service

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_radar/internal/model"
	"github.com/iWorld-y/research_radar/internal/syncer"
)

// RadarService 对展示层暴露报告同步接口
type RadarService struct {
	co     *syncer.Coordinator
	secret string
	log    *log.Helper
}

// NewRadarService 创建展示服务实例。secret 是手动刷新口令，
// 仅用于抑制对昂贵生成路径的随意触发，不构成安全边界。
func NewRadarService(co *syncer.Coordinator, secret string, logger log.Logger) *RadarService {
	return &RadarService{
		co:     co,
		secret: secret,
		log:    log.NewHelper(logger),
	}
}

type reportReply struct {
	Status    model.Status       `json:"status"`
	Error     string             `json:"error,omitempty"`
	Report    *model.DailyReport `json:"report,omitempty"`
	Dates     []string           `json:"dates"`
	CallCount int                `json:"call_count"`
}

type statusReply struct {
	Status    model.Status `json:"status"`
	Error     string       `json:"error,omitempty"`
	CallCount int          `json:"call_count"`
}

type refreshRequest struct {
	Secret string `json:"secret"`
}

// FetchReport GET /api/report：解析并返回当前边界日的报告
func (s *RadarService) FetchReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.co.FetchReport(r.Context(), false)
	s.writeReport(w, report, err)
}

// Refresh POST /api/report/refresh：口令通过后强制重新生成
func (s *RadarService) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Secret == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "secret required"})
		return
	}
	if req.Secret != s.secret {
		s.log.Warn("manual refresh rejected: invalid secret")
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
		return
	}

	report, err := s.co.FetchReport(r.Context(), true)
	s.writeReport(w, report, err)
}

// Navigate GET /api/reports?index=N：按合并索引位置取历史报告
func (s *RadarService) Navigate(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	report, err := s.co.NavigateToDate(r.Context(), index)
	s.writeReport(w, report, err)
}

// Dates GET /api/dates：返回合并后的可导航日期列表
func (s *RadarService) Dates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"dates":      s.co.Dates(),
		"call_count": s.co.CallCount(),
	})
}

// Status GET /api/status：返回状态机状态与全局调用计数
func (s *RadarService) Status(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusReply{
		Status:    s.co.Status(),
		Error:     s.co.LastError(),
		CallCount: s.co.CallCount(),
	})
}

func (s *RadarService) writeReport(w http.ResponseWriter, report *model.DailyReport, err error) {
	reply := reportReply{
		Status:    s.co.Status(),
		Report:    report,
		Dates:     s.co.Dates(),
		CallCount: s.co.CallCount(),
	}
	code := http.StatusOK
	if err != nil {
		reply.Error = err.Error()
		code = http.StatusInternalServerError
	}
	s.writeJSON(w, code, reply)
}

func (s *RadarService) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("write response failed: %v", err)
	}
}
