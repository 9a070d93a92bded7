// Package api serves the pack catalogue and rule evaluation over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/TimurManjosov/packgenie/internal/audit"
	"github.com/TimurManjosov/packgenie/internal/auth"
	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/TimurManjosov/packgenie/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

// Options configures a Server. Zero rate limits disable limiting.
type Options struct {
	AdminAPIKey          string
	AdminAPIKeyHash      string
	RateLimitPerIP       int
	RateLimitAdminPerKey int
	SelectWorkers        int
	Audit                *audit.Service
	Logger               zerolog.Logger
}

type Server struct {
	store  store.Store
	auth   *auth.Authenticator
	audit  *audit.Service
	logger zerolog.Logger
	opts   Options
}

func NewServer(st store.Store, opts Options) *Server {
	return &Server{
		store:  st,
		auth:   auth.NewAuthenticator(opts.AdminAPIKey, opts.AdminAPIKeyHash),
		audit:  opts.Audit,
		logger: opts.Logger.With().Str("component", "api").Logger(),
		opts:   opts,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(requestLogger(s.logger))
	if s.opts.RateLimitPerIP > 0 {
		r.Use(httprate.Limit(s.opts.RateLimitPerIP, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(RateLimitedError),
		))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		// long-lived, so outside the request timeout
		r.Get("/packs/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(5 * time.Second))

			// public: reads and evaluation
			r.Get("/packs/snapshot", s.handleSnapshot)
			r.Get("/packs/export", s.handleExport)
			r.Get("/packs", s.handleListPacks)
			r.Get("/packs/{id}", s.handleGetPack)
			r.Post("/packs/{id}/evaluate", s.handleEvaluatePack)
			r.Post("/evaluate", s.handleEvaluateAdhoc)
			r.Post("/select", s.handleSelect)

			// admin: catalogue mutations
			r.Group(func(r chi.Router) {
				r.Use(s.auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request, _ int, message string) {
					UnauthorizedError(w, r, message)
				}))
				if s.opts.RateLimitAdminPerKey > 0 {
					r.Use(httprate.Limit(s.opts.RateLimitAdminPerKey, time.Minute,
						httprate.WithKeyFuncs(keyByActor),
						httprate.WithLimitHandler(RateLimitedError),
					))
				}
				r.Post("/packs", s.handleUpsertPack)
				r.Post("/packs/import", s.handleImport)
				r.Delete("/packs/{id}", s.handleDeletePack)
				r.Post("/packs/{id}/clone", s.handleClonePack)
			})
		})
	})

	return r
}

// RebuildSnapshot reloads the catalogue from the store and swaps the
// atomic snapshot.
func (s *Server) RebuildSnapshot(ctx context.Context) error {
	file, err := s.store.Export(ctx)
	if err != nil {
		return err
	}
	snap, err := snapshot.BuildFromFile(file)
	if err != nil {
		return err
	}
	snapshot.Update(snap)
	telemetry.SnapshotPacks.Set(float64(snap.Len()))
	return nil
}

// logAudit queues an event when auditing is enabled.
func (s *Server) logAudit(event audit.AuditEvent) {
	if s.audit != nil {
		s.audit.Log(event)
	}
}

// keyByActor buckets admin requests by credential rather than by IP.
func keyByActor(r *http.Request) (string, error) {
	return auth.ActorFromContext(r.Context()), nil
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
