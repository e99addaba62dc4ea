// Package server exposes the callaudit HTTP API: submitting comparisons,
// polling their status, and fetching stored call analyses. All domain logic
// lives in internal/compare and internal/analyzer; handlers here only decode,
// dispatch, and encode.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonavox/callaudit/internal/analyzer"
	"github.com/sonavox/callaudit/internal/blob"
	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/observe"
	"github.com/sonavox/callaudit/internal/store/postgres"
)

// checkTimeout is the maximum time a single readiness check may take before
// the context is cancelled.
const checkTimeout = 5 * time.Second

// Comparer starts comparison jobs. *compare.Orchestrator satisfies it.
type Comparer interface {
	Execute(ctx context.Context, req compare.Request) (*compare.Result, error)
}

// Store is the persistence surface the API uses. *postgres.Store satisfies
// it. SetPhase writes the initial pending row for a freshly accepted
// comparison; subsequent status transitions come from the orchestrator.
type Store interface {
	SetPhase(ctx context.Context, comparisonID, status, phase string) error
	SaveCallAnalysis(ctx context.Context, callID, audioKey string, res *analyzer.Result) error
	GetCallAnalysis(ctx context.Context, callID string) (*postgres.CallRecord, error)
	ListCalls(ctx context.Context, limit int) ([]postgres.CallRecord, error)
	GetComparison(ctx context.Context, comparisonID string) (*postgres.ComparisonRecord, error)
	ListComparisons(ctx context.Context, limit int) ([]postgres.ComparisonRecord, error)
	ListRuns(ctx context.Context, comparisonID string) ([]compare.Run, error)
	DeleteComparison(ctx context.Context, comparisonID string) error
}

// Checker is a named readiness check. Check must respect context
// cancellation and return nil when the dependency is healthy.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server is the callaudit HTTP API.
type Server struct {
	comparer Comparer
	store    Store
	blobs    blob.Store
	analyzer *analyzer.Analyzer
	metrics  *observe.Metrics
	log      *slog.Logger
	checkers []Checker
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the metrics instance used by the HTTP middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithAnalysis enables POST /v1/calls/{id}/analyze: audio is fetched from
// blobs by key and run through a.
func WithAnalysis(a *analyzer.Analyzer, blobs blob.Store) Option {
	return func(s *Server) {
		s.analyzer = a
		s.blobs = blobs
	}
}

// WithCheckers registers readiness checks evaluated on /readyz.
func WithCheckers(checkers ...Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, checkers...) }
}

// New creates a Server. store may be nil when persistence is disabled; all
// read endpoints then answer 503.
func New(comparer Comparer, store Store, opts ...Option) *Server {
	s := &Server{
		comparer: comparer,
		store:    store,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the fully routed HTTP handler, wrapped in the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/comparisons", s.handleCreateComparison)
	mux.HandleFunc("GET /v1/comparisons", s.handleListComparisons)
	mux.HandleFunc("GET /v1/comparisons/{id}", s.handleGetComparison)
	mux.HandleFunc("GET /v1/comparisons/{id}/runs", s.handleListRuns)
	mux.HandleFunc("DELETE /v1/comparisons/{id}", s.handleDeleteComparison)

	mux.HandleFunc("GET /v1/calls", s.handleListCalls)
	mux.HandleFunc("GET /v1/calls/{id}/analysis", s.handleGetCallAnalysis)
	mux.HandleFunc("POST /v1/calls/{id}/analyze", s.handleAnalyzeCall)

	return observe.Middleware(s.metrics)(mux)
}

// handleHealthz is a liveness probe; a process that can serve HTTP is alive.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz runs every registered checker and reports per-check results.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.checkers))
	allOK := true

	for _, c := range s.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	status := http.StatusOK
	body := map[string]any{"status": "ok", "checks": checks}
	if !allOK {
		body["status"] = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// requireStore answers 503 and returns false when persistence is disabled.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return false
	}
	return true
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, postgres.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
