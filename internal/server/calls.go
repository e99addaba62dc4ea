package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/sonavox/callaudit/internal/analyzer"
	"github.com/sonavox/callaudit/internal/blob"
	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/observe"
	"github.com/sonavox/callaudit/pkg/audio"
)

func (s *Server) handleGetCallAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.GetCallAnalysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// analyzeCallRequest is the POST /v1/calls/{id}/analyze body. Keys address
// the configured blob store; the transcript is optional.
type analyzeCallRequest struct {
	AudioKey      string `json:"audio_key"`
	TranscriptKey string `json:"transcript_key"`
}

// handleAnalyzeCall fetches a recording from the blob store, analyzes it,
// and persists the result under the call ID when a store is configured.
func (s *Server) handleAnalyzeCall(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil || s.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "audio analysis is not configured")
		return
	}

	var req analyzeCallRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AudioKey == "" {
		writeError(w, http.StatusBadRequest, "audio_key is required")
		return
	}

	callID := r.PathValue("id")
	ctx := r.Context()

	data, err := s.readBlob(ctx, req.AudioKey)
	if err != nil {
		writeBlobError(w, err)
		return
	}
	wave, err := audio.Decode(data, s.analyzer.Config().SampleRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var timeline []analyzer.Turn
	if req.TranscriptKey != "" {
		raw, err := s.readBlob(ctx, req.TranscriptKey)
		if err != nil {
			writeBlobError(w, err)
			return
		}
		if timeline, err = analyzer.ParseTranscript(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	started := time.Now()
	res, err := s.analyzer.Analyze(wave, timeline)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.AnalysisDuration.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(observe.Attr("source", "api")))
	for _, tl := range compare.ExtractTurnLatencies(res.Timeline) {
		s.metrics.AgentTurnLatency.Record(ctx, tl.Latency,
			metric.WithAttributes(observe.Attr("source", "analysis")))
	}

	if s.store != nil {
		if err := s.store.SaveCallAnalysis(ctx, callID, req.AudioKey, res); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"call_id":  callID,
		"analysis": res,
	})
}

func (s *Server) readBlob(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// writeBlobError maps blob store errors onto HTTP statuses.
func writeBlobError(w http.ResponseWriter, err error) {
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.store.ListCalls(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": records})
}
