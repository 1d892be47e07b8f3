package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Controller is the part of a run the server can observe and stop.
// *pipeline.Run satisfies it.
type Controller interface {
	ID() string
	Progress() model.Progress
	Stop() bool
}

// Server is the status and control HTTP server of a run.
type Server struct {
	addr     string
	ctrl     Controller
	metrics  *Metrics
	logger   *slog.Logger
	srv      *http.Server
	listener net.Listener
	done     chan error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for requests and lifecycle events.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server for ctrl listening on addr. metrics may be nil,
// in which case /metrics is not routed.
func NewServer(addr string, ctrl Controller, metrics *Metrics, opts ...ServerOption) *Server {
	s := &Server{
		addr:    addr,
		ctrl:    ctrl,
		metrics: metrics,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/progress", s.handleProgress)
	r.Post("/stop", s.handleStop)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan error, 1)

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	s.logger.Info("status server listening", "addr", ln.Addr().String(), "run_id", s.ctrl.ID())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}

type progressResponse struct {
	RunID     string `json:"run_id"`
	Succeeded int64  `json:"succeeded"`
	model.Progress
}

type stopResponse struct {
	RunID    string `json:"run_id"`
	Stopping bool   `json:"stopping"`
	Accepted bool   `json:"accepted"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	p := s.ctrl.Progress()
	writeJSON(w, http.StatusOK, progressResponse{
		RunID:     s.ctrl.ID(),
		Succeeded: p.Succeeded(),
		Progress:  p,
	})
}

// handleStop answers 202 for the request that set the stop flag and 200
// for repeats.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	accepted := s.ctrl.Stop()
	status := http.StatusOK
	if accepted {
		status = http.StatusAccepted
		s.logger.Info("stop requested over http", "remote", r.RemoteAddr, "run_id", s.ctrl.ID())
	}
	writeJSON(w, status, stopResponse{
		RunID:    s.ctrl.ID(),
		Stopping: true,
		Accepted: accepted,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("status request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
