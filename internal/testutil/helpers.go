// Package testutil holds helpers shared by HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TimurManjosov/packgenie/internal/api"
	"github.com/TimurManjosov/packgenie/internal/audit"
	"github.com/TimurManjosov/packgenie/internal/rules"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/rs/zerolog"
)

// NewTestServer creates a test server with in-memory store for testing.
// Rate limiting is off and the snapshot is reset to the empty catalogue.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	return newServer(t, adminKey, nil)
}

// NewAuditedTestServer is NewTestServer with audit events captured in a
// MemorySink.
func NewAuditedTestServer(t *testing.T, adminKey string) (*api.Server, *store.MemoryStore, *audit.MemorySink) {
	t.Helper()
	sink := audit.NewMemorySink()
	svc := audit.NewService(sink, nil, nil, zerolog.Nop(), 64)
	t.Cleanup(func() { _ = svc.Close() })
	server, memStore := newServer(t, adminKey, svc)
	return server, memStore, sink
}

func newServer(t *testing.T, adminKey string, svc *audit.Service) (*api.Server, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	server := api.NewServer(memStore, api.Options{
		AdminAPIKey: adminKey,
		Audit:       svc,
		Logger:      zerolog.Nop(),
	})
	if err := server.RebuildSnapshot(context.Background()); err != nil {
		t.Fatalf("RebuildSnapshot: %v", err)
	}
	return server, memStore
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// Bearer returns an Authorization header map for key.
func Bearer(key string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + key}
}

// SeedPacks populates the store with test packs.
func SeedPacks(ctx context.Context, st store.Store, packs ...store.Pack) error {
	for _, p := range packs {
		if err := st.UpsertPack(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// NewPack returns an enabled, valid pack with the given rules.
func NewPack(id string, include, exclude []rules.Condition) store.Pack {
	return store.Pack{
		ID:     id,
		Type:   "boiler",
		Brand:  "Worcester",
		Title:  "Pack " + id,
		Labour: store.Labour{Hours: 6},
		Materials: []store.Material{
			{Code: "FLUE-1", Name: "Flue kit", UnitCost: 40, UnitPrice: 65, Quantity: 1},
		},
		Rules:   rules.RuleSet{IncludeIf: include, ExcludeIf: exclude},
		Enabled: true,
	}
}

// WaitForEvents polls sink until it holds at least n events or a second
// passes.
func WaitForEvents(t *testing.T, sink *audit.MemorySink, n int) []audit.AuditEvent {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		events := sink.Events()
		if len(events) >= n {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d audit events, got %d", n, len(events))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
