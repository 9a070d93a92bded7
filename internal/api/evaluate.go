package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/TimurManjosov/packgenie/internal/engine"
	"github.com/TimurManjosov/packgenie/internal/selection"
	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/TimurManjosov/packgenie/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

// handleEvaluatePack tests one saved pack against a job context.
func (s *Server) handleEvaluatePack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pack, ok := snapshot.Load().Get(id)
	if !ok {
		NotFoundError(w, r, fmt.Sprintf("Pack %q not found", id))
		return
	}

	verdict := engine.EvaluatePack(&pack, req.Context)
	telemetry.RecordVerdict(verdict.ShouldInclude)
	writeJSON(w, http.StatusOK, verdict)
}

// handleEvaluateAdhoc tests an unsaved pack, as the pack editor does
// before the user saves.
func (s *Server) handleEvaluateAdhoc(w http.ResponseWriter, r *http.Request) {
	var req adhocEvaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Pack == nil {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "Missing required field",
			map[string]string{"pack": "pack is required"})
		return
	}

	verdict := engine.EvaluatePack(req.Pack, req.Context)
	telemetry.RecordVerdict(verdict.ShouldInclude)
	writeJSON(w, http.StatusOK, verdict)
}

// handleSelect evaluates the whole catalogue against one job context.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap := snapshot.Load()
	result, err := selection.Select(r.Context(), snap.Packs, req.Context, selection.Options{
		IncludeDisabled: req.IncludeDisabled,
		Workers:         s.opts.SelectWorkers,
	})
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			s.logger.Warn().Err(err).Msg("selection cancelled")
		} else {
			s.logger.Error().Err(err).Msg("selection failed")
		}
		InternalError(w, r, "Selection failed")
		return
	}

	included, excluded, skipped := result.Counts()
	telemetry.RecordSelection(included, excluded, skipped)
	s.logger.Debug().
		Int("included", included).
		Int("excluded", excluded).
		Int("skipped", skipped).
		Msg("selection evaluated")

	writeJSON(w, http.StatusOK, selectResponse{ETag: snap.ETag, Result: result})
}
