package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TimurManjosov/packgenie/internal/api"
	"github.com/TimurManjosov/packgenie/internal/audit"
	"github.com/TimurManjosov/packgenie/internal/config"
	"github.com/TimurManjosov/packgenie/internal/logging"
	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/TimurManjosov/packgenie/internal/telemetry"
	"github.com/TimurManjosov/packgenie/internal/webhook"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	format := logging.FormatConsole
	if cfg.IsProduction() {
		format = logging.FormatJSON
	}
	logger := logging.Setup(cfg.LogLevel, format, os.Stderr)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(ctx, cfg.StoreType, store.Options{
		PacksFile: cfg.PacksFile,
		DSN:       cfg.DatabaseDSN,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.StoreType).Msg("store")
	}
	defer st.Close()

	auditSvc := audit.NewService(audit.NewLogSink(logger), nil, nil, logger, 0)
	defer auditSvc.Close()

	telemetry.Init()

	// API server with deps
	srvAPI := api.NewServer(st, api.Options{
		AdminAPIKey:          cfg.AdminAPIKey,
		AdminAPIKeyHash:      cfg.AdminAPIKeyHash,
		RateLimitPerIP:       cfg.RateLimitPerIP,
		RateLimitAdminPerKey: cfg.RateLimitAdminPerKey,
		SelectWorkers:        cfg.SelectWorkers,
		Audit:                auditSvc,
		Logger:               logger,
	})

	// initial snapshot
	if err := srvAPI.RebuildSnapshot(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load catalogue")
	}
	s := snapshot.Load()
	logger.Info().Int("packs", s.Len()).Str("etag", s.ETag).Msg("snapshot loaded")

	if len(cfg.WebhookURLs) > 0 {
		targets := make([]webhook.Target, 0, len(cfg.WebhookURLs))
		for _, u := range cfg.WebhookURLs {
			targets = append(targets, webhook.Target{
				URL:        u,
				Secret:     cfg.WebhookSecret,
				MaxRetries: cfg.WebhookMaxRetries,
				Timeout:    cfg.WebhookTimeout,
			})
		}
		dispatcher := webhook.NewDispatcher(targets, logger)
		dispatcher.Start()
		defer dispatcher.Close()
		go dispatcher.Run(ctx)
		logger.Info().Int("targets", len(targets)).Msg("catalogue webhooks enabled")
	}

	if fs, ok := st.(*store.FileStore); ok && cfg.WatchPacksFile {
		go watchCatalogue(ctx, fs, srvAPI)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	}()

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	logger.Info().Msg("stopped")
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// watchCatalogue rebuilds the snapshot whenever the pack file is edited
// outside the server.
func watchCatalogue(ctx context.Context, fs *store.FileStore, srvAPI *api.Server) {
	logger := logging.GetLogger("watch")
	err := fs.Watch(ctx, func() {
		if err := srvAPI.RebuildSnapshot(ctx); err != nil {
			telemetry.CatalogueReloads.WithLabelValues("error").Inc()
			logger.Error().Err(err).Msg("snapshot rebuild after reload failed")
			return
		}
		telemetry.CatalogueReloads.WithLabelValues("ok").Inc()
		logger.Info().Str("etag", snapshot.Load().ETag).Msg("catalogue reloaded")
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("pack file watch stopped")
	}
}
