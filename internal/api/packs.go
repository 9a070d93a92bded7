package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/TimurManjosov/packgenie/internal/audit"
	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/TimurManjosov/packgenie/internal/validation"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := snapshot.Load()
	setNoCache(w)
	w.Header().Set("ETag", snap.ETag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	snap := snapshot.Load()
	w.Header().Set("ETag", snap.ETag)
	writeJSON(w, http.StatusOK, listResponse{Packs: snap.Packs, ETag: snap.ETag})
}

func (s *Server) handleGetPack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pack, ok := snapshot.Load().Get(id)
	if !ok {
		NotFoundError(w, r, fmt.Sprintf("Pack %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, pack)
}

// handleUpsertPack saves a pack. Rule lint problems do not block the save;
// they come back as warnings.
func (s *Server) handleUpsertPack(w http.ResponseWriter, r *http.Request) {
	var pack store.Pack
	if !decodeJSON(w, r, &pack) {
		return
	}

	if result := validation.ValidatePack(pack); !result.Valid {
		ValidationError(w, r, "Pack validation failed", result.Errors)
		return
	}

	before, err := s.store.GetPack(r.Context(), pack.ID)
	if err != nil && !errors.Is(err, store.ErrPackNotFound) {
		s.logger.Error().Err(err).Str("pack_id", pack.ID).Msg("failed to load pack before upsert")
		storeError(w, r, err)
		return
	}
	created := before == nil

	action := audit.ActionUpdated
	if created {
		action = audit.ActionCreated
	}
	event := audit.NewEventBuilder(r).
		ForResource(audit.ResourceTypePack, pack.ID).
		WithAction(action)
	if before != nil {
		event.WithBeforeState(audit.StateOf(before))
	}

	if err := s.store.UpsertPack(r.Context(), pack); err != nil {
		s.logger.Error().Err(err).Str("pack_id", pack.ID).Msg("failed to upsert pack")
		s.logAudit(event.Failure(err.Error()).Build())
		storeError(w, r, err)
		return
	}
	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("failed to rebuild snapshot")
		InternalError(w, r, "Failed to rebuild snapshot")
		return
	}

	saved, _ := snapshot.Load().Get(pack.ID)
	s.logAudit(event.WithAfterState(audit.StateOf(saved)).Build())

	var warnings map[string]string
	if lint := validation.ValidateRules(pack.Rules); !lint.Valid {
		warnings = lint.Errors
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, upsertResponse{
		OK:       true,
		Created:  created,
		ETag:     snapshot.Load().ETag,
		Warnings: warnings,
	})
}

func (s *Server) handleDeletePack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	before, err := s.store.GetPack(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrPackNotFound) {
		storeError(w, r, err)
		return
	}

	if err := s.store.DeletePack(r.Context(), id); err != nil {
		s.logger.Error().Err(err).Str("pack_id", id).Msg("failed to delete pack")
		storeError(w, r, err)
		return
	}
	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("failed to rebuild snapshot")
		InternalError(w, r, "Failed to rebuild snapshot")
		return
	}

	// deleting a missing pack succeeds but is not audited
	if before != nil {
		s.logAudit(audit.NewEventBuilder(r).
			ForResource(audit.ResourceTypePack, id).
			WithAction(audit.ActionDeleted).
			WithBeforeState(audit.StateOf(before)).
			Build())
	}

	writeJSON(w, http.StatusOK, mutationResponse{OK: true, ETag: snapshot.Load().ETag})
}

func (s *Server) handleClonePack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	clone, err := s.store.ClonePack(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("failed to rebuild snapshot")
		InternalError(w, r, "Failed to rebuild snapshot")
		return
	}

	s.logAudit(audit.NewEventBuilder(r).
		ForResource(audit.ResourceTypePack, clone.ID).
		WithAction(audit.ActionCloned).
		WithAfterState(audit.StateOf(clone)).
		Build())

	writeJSON(w, http.StatusCreated, cloneResponse{Pack: *clone, ETag: snapshot.Load().ETag})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	file, err := s.store.Export(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to export catalogue")
		storeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="packs.json"`)
	writeJSON(w, http.StatusOK, file)
}

// handleImport replaces the whole catalogue. Nothing is written unless the
// uploaded file validates.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}

	result, file := validation.ValidatePackFileJSON(raw)
	if !result.Valid {
		BadRequestErrorWithFields(w, r, ErrCodeInvalidPackFile, "Pack file validation failed", result.Errors)
		return
	}

	before := snapshot.Load()
	event := audit.NewEventBuilder(r).
		ForResource(audit.ResourceTypeCatalogue, "packs").
		WithAction(audit.ActionImported).
		WithBeforeState(map[string]any{"etag": before.ETag, "packs": before.Len()})

	if err := s.store.Import(r.Context(), *file); err != nil {
		s.logger.Error().Err(err).Msg("failed to import catalogue")
		s.logAudit(event.Failure(err.Error()).Build())
		storeError(w, r, err)
		return
	}
	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("failed to rebuild snapshot")
		InternalError(w, r, "Failed to rebuild snapshot")
		return
	}

	after := snapshot.Load()
	s.logAudit(event.WithAfterState(map[string]any{"etag": after.ETag, "packs": after.Len()}).Build())

	writeJSON(w, http.StatusOK, mutationResponse{OK: true, ETag: after.ETag})
}
