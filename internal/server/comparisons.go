package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/simulate"
)

// executeTimeout bounds a whole background comparison, generously above the
// per-run timeout so slow queues do not kill healthy jobs.
const executeTimeout = 2 * time.Hour

// createComparisonRequest is the POST /v1/comparisons body. Agent IDs are
// resolved through the configured platform fetcher; manual agents are used
// as given. At least one of the two must be present.
type createComparisonRequest struct {
	AgentIDs       []string               `json:"agent_ids"`
	Agents         []simulate.AgentConfig `json:"agents"`
	Scenario       simulate.Scenario      `json:"scenario"`
	NumSimulations int                    `json:"num_simulations"`
}

// handleCreateComparison validates the request, assigns a comparison ID, and
// starts the orchestrator in the background. The response returns
// immediately; clients poll GET /v1/comparisons/{id} for progress.
func (s *Server) handleCreateComparison(w http.ResponseWriter, r *http.Request) {
	var req createComparisonRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.AgentIDs) == 0 && len(req.Agents) == 0 {
		writeError(w, http.StatusBadRequest, "must provide either agent_ids or agents")
		return
	}
	if req.Scenario.UserPersona == "" || req.Scenario.ExpectedOutcome == "" {
		writeError(w, http.StatusBadRequest, "scenario requires user_persona and expected_outcome")
		return
	}
	if req.NumSimulations < 1 {
		req.NumSimulations = 1
	}

	comparisonID := uuid.NewString()

	// Persist the pending row before the job starts so a poll arriving right
	// after the 202 finds the comparison.
	if s.store != nil {
		if err := s.store.SetPhase(r.Context(), comparisonID, compare.StatusPending, ""); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	// The job outlives the HTTP request; detach it from the request context.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
		defer cancel()

		s.metrics.ActiveComparisons.Add(ctx, 1)
		defer s.metrics.ActiveComparisons.Add(ctx, -1)

		_, err := s.comparer.Execute(ctx, compare.Request{
			ComparisonID:   comparisonID,
			AgentIDs:       req.AgentIDs,
			Configs:        req.Agents,
			Scenario:       req.Scenario,
			NumSimulations: req.NumSimulations,
		})
		if err != nil {
			s.log.Error("comparison failed", "comparison_id", comparisonID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"comparison_id": comparisonID,
		"status":        compare.StatusPending,
	})
}

func (s *Server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.GetComparison(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListComparisons(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.store.ListComparisons(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparisons": records})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runs, err := s.store.ListRuns(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleDeleteComparison(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.DeleteComparison(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
