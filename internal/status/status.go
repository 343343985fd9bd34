// Package status serves a small read-only HTTP view of training progress.
// The coordinator starts it when a listen address is configured; it is
// best-effort observability and nothing in the run depends on it.
package status

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"kiln/internal/train"
	"kiln/internal/version"
)

// Server tracks the latest trainer metrics and serves them over HTTP. It
// implements train.Reporter; Observe only swaps a value under a mutex so it
// is safe to call from the training loop.
type Server struct {
	runID     string
	startedAt time.Time

	mu      sync.RWMutex
	metrics train.Metrics
	seen    bool
}

// NewServer creates a tracker with a fresh run id.
func NewServer() *Server {
	return &Server{
		runID:     uuid.NewString(),
		startedAt: time.Now(),
	}
}

// RunID returns the identifier attached to this run's status responses.
func (s *Server) RunID() string { return s.runID }

// Observe records the latest metrics.
func (s *Server) Observe(m train.Metrics) {
	s.mu.Lock()
	s.metrics = m
	s.seen = true
	s.mu.Unlock()
}

// Register mounts the status routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealthz)
	e.GET("/v1/status", s.handleStatus)
}

// statusResponse is the wire shape of GET /v1/status.
type statusResponse struct {
	RunID     string        `json:"run_id"`
	Version   string        `json:"version"`
	StartedAt time.Time     `json:"started_at"`
	Training  bool          `json:"training"`
	Metrics   train.Metrics `json:"metrics"`
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *echo.Context) error {
	s.mu.RLock()
	m, seen := s.metrics, s.seen
	s.mu.RUnlock()
	return c.JSON(http.StatusOK, statusResponse{
		RunID:     s.runID,
		Version:   version.String(),
		StartedAt: s.startedAt,
		Training:  seen,
		Metrics:   m,
	})
}

// Start runs the HTTP server until ctx is done. Intended to be launched on
// its own goroutine by the coordinator.
func (s *Server) Start(ctx context.Context, addr string) error {
	e := echo.New()
	s.Register(e)
	sc := echo.StartConfig{Address: addr}
	return sc.Start(ctx, e)
}
