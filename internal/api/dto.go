package api

import (
	"github.com/TimurManjosov/packgenie/internal/engine"
	"github.com/TimurManjosov/packgenie/internal/selection"
	"github.com/TimurManjosov/packgenie/internal/store"
)

// upsertResponse is returned by POST /v1/packs
type upsertResponse struct {
	OK       bool              `json:"ok"`
	Created  bool              `json:"created"`
	ETag     string            `json:"etag"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

// mutationResponse is returned by delete and import
type mutationResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

// cloneResponse is returned by POST /v1/packs/{id}/clone
type cloneResponse struct {
	Pack store.Pack `json:"pack"`
	ETag string     `json:"etag"`
}

// listResponse is returned by GET /v1/packs
type listResponse struct {
	Packs []store.Pack `json:"packs"`
	ETag  string       `json:"etag"`
}

// evaluateRequest is the body of POST /v1/packs/{id}/evaluate
type evaluateRequest struct {
	Context engine.Context `json:"context"`
}

// adhocEvaluateRequest is the body of POST /v1/evaluate: a pack that need
// not be saved, plus the job context.
type adhocEvaluateRequest struct {
	Pack    *store.Pack    `json:"pack"`
	Context engine.Context `json:"context"`
}

// selectRequest is the body of POST /v1/select
type selectRequest struct {
	Context         engine.Context `json:"context"`
	IncludeDisabled bool           `json:"includeDisabled"`
}

// selectResponse is returned by POST /v1/select
type selectResponse struct {
	ETag string `json:"etag"`
	selection.Result
}
