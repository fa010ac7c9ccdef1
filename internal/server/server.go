// Package server exposes the workspace over an HTTP/JSON API with a
// Datastar SSE stream for live chart updates.
package server

import (
	"log/slog"
	"net/http"

	"github.com/klytics/sheetdash/internal/config"
	"github.com/klytics/sheetdash/internal/logging"
	"github.com/klytics/sheetdash/internal/suggest"
	"github.com/klytics/sheetdash/internal/workspace"
)

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// Suggest backs POST /api/suggest-charts. Nil leaves the route off.
	Suggest  suggest.Service
	Security config.SecurityConfig
}

type Server struct {
	ws      *workspace.Workspace
	logger  *slog.Logger
	mux     *http.ServeMux
	hub     *hub
	handler http.Handler
}

func New(ws *workspace.Workspace, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		ws:     ws,
		logger: logger,
		mux:    http.NewServeMux(),
		hub:    newHub(),
	}
	s.setupRoutes(opts.Suggest)

	limiter := NewRateLimiter(opts.Security.RateLimitRPS, opts.Security.RateLimitBurst)
	s.handler = Chain(
		RequestID(),
		Logger(logger),
		Recovery(logger),
		SecurityHeaders(),
		CORS(opts.Security),
		RateLimit(limiter, logger),
	)(s.mux)
	return s
}

func (s *Server) setupRoutes(svc suggest.Service) {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/overview", s.handleOverview)

	s.mux.HandleFunc("GET /api/files", s.handleListFiles)
	s.mux.HandleFunc("POST /api/files", s.handleUpload)
	s.mux.HandleFunc("GET /api/files/{id}", s.handleGetFile)
	s.mux.HandleFunc("GET /api/files/{id}/table", s.handleFileTable)
	s.mux.HandleFunc("DELETE /api/files/{id}", s.handleDeleteFile)

	s.mux.HandleFunc("GET /api/dashboards", s.handleListDashboards)
	s.mux.HandleFunc("POST /api/dashboards", s.handleCreateDashboard)
	s.mux.HandleFunc("POST /api/dashboards/import", s.handleImportDashboard)
	s.mux.HandleFunc("GET /api/dashboards/{id}", s.handleGetDashboard)
	s.mux.HandleFunc("PATCH /api/dashboards/{id}", s.handleUpdateDashboard)
	s.mux.HandleFunc("DELETE /api/dashboards/{id}", s.handleDeleteDashboard)
	s.mux.HandleFunc("GET /api/dashboards/{id}/export", s.handleExportDashboard)
	s.mux.HandleFunc("GET /api/dashboards/{id}/series", s.handleSeries)
	s.mux.HandleFunc("GET /api/dashboards/{id}/series.xlsx", s.handleSeriesWorkbook)
	s.mux.HandleFunc("POST /api/dashboards/{id}/suggestions", s.handleSuggest)

	s.mux.HandleFunc("POST /api/dashboards/{id}/charts", s.handleAddChart)
	s.mux.HandleFunc("PATCH /api/dashboards/{id}/charts/{chart}", s.handleUpdateChart)
	s.mux.HandleFunc("DELETE /api/dashboards/{id}/charts/{chart}", s.handleRemoveChart)
	s.mux.HandleFunc("GET /api/dashboards/{id}/charts/{chart}/png", s.handleChartPNG)

	s.mux.HandleFunc("GET /sse/dashboards/{id}", s.handleDashboardStream)

	if svc != nil {
		s.mux.Handle("POST /api/suggest-charts", suggest.Handler(svc, s.logger))
	}
}

// CloseStreams ends every open dashboard stream. Register it with
// http.Server.RegisterOnShutdown so streams do not hold up a shutdown.
func (s *Server) CloseStreams() {
	s.hub.close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
