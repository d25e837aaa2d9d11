package server

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/research_radar/internal/conf"
	"github.com/iWorld-y/research_radar/internal/service"
)

// NewHTTPServer 创建 HTTP 服务并注册展示层路由
func NewHTTPServer(c *conf.Server, s *service.RadarService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != "" {
		if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	srv.HandleFunc("/api/report", s.FetchReport)
	srv.HandleFunc("/api/report/refresh", s.Refresh)
	srv.HandleFunc("/api/reports", s.Navigate)
	srv.HandleFunc("/api/dates", s.Dates)
	srv.HandleFunc("/api/status", s.Status)

	return srv
}
