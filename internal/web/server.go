// Package web serves the inspection workflow over a JSON/SSE HTTP API for a
// single operator.
package web

import (
	"context"
	"net/http"

	"github.com/dofliu/InduSpect/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultMaxUpload = 20 << 20

// Server is the HTTP API over one workflow.
type Server struct {
	wf        *session.Workflow
	logger    *zap.Logger
	gatherer  prometheus.Gatherer
	maxUpload int64
	mux       *http.ServeMux
}

// Config holds server configuration.
type Config struct {
	Workflow *session.Workflow
	Logger   *zap.Logger
	// Gatherer backs GET /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
	// MaxUpload limits photo uploads in bytes.
	MaxUpload int64
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		wf:        cfg.Workflow,
		logger:    cfg.Logger,
		gatherer:  cfg.Gatherer,
		maxUpload: cfg.MaxUpload,
		mux:       http.NewServeMux(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.mux.HandleFunc("GET /api/session", s.handleGetSession)
	s.mux.HandleFunc("POST /api/form", s.handleSubmitForm)

	s.mux.HandleFunc("POST /api/items/{id}/photo", s.handleCapturePhoto)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/items/{id}/reanalyze", s.handleReanalyze)
	s.mux.HandleFunc("POST /api/items/{id}/retry", s.handleRetry)

	s.mux.HandleFunc("PATCH /api/items/{id}/result", s.handleEditResult)
	s.mux.HandleFunc("POST /api/items/{id}/measure", s.handleMeasure)
	s.mux.HandleFunc("POST /api/items/{id}/confirm", s.handleConfirm)
	s.mux.HandleFunc("POST /api/confirm-all", s.handleConfirmAll)

	s.mux.HandleFunc("POST /api/quick", s.handleStartQuick)
	s.mux.HandleFunc("POST /api/quick/photo", s.handleQuickPhoto)
	s.mux.HandleFunc("POST /api/quick/save", s.handleSaveQuick)
	s.mux.HandleFunc("POST /api/quick/retry", s.handleRetryQuick)
	s.mux.HandleFunc("POST /api/quick/back", s.handleBackToMain)

	s.mux.HandleFunc("POST /api/report", s.handleReport)
	s.mux.HandleFunc("POST /api/new", s.handleStartNew)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionResponse is the body returned by every workflow endpoint.
type sessionResponse struct {
	session.State
	Progress session.Progress `json:"progress"`
	Online   bool             `json:"online"`
}

func (s *Server) sessionBody(ctx context.Context) sessionResponse {
	st := s.wf.Snapshot()
	return sessionResponse{State: st, Progress: st.Progress(), Online: s.wf.Online(ctx)}
}

// persist saves the session after a change. A failed save is logged and
// does not fail the request, and runs even if the client has gone away.
func (s *Server) persist(ctx context.Context) {
	if err := s.wf.Save(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("failed to save session", zap.Error(err))
	}
}

// respond persists the session and writes it, or the error if err is set.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	s.persist(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionBody(r.Context()))
}
