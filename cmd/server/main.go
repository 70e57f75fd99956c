package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkcore/internal/config"
	"parkcore/internal/infra"
	"parkcore/internal/router"
	"parkcore/internal/service"
	"parkcore/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Pretty console logs in dev, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// ── Collaborators ────────────────────────────────────────────────────────
	deps := router.Deps{Audit: service.NewLogAuditSink()}

	if cfg.QuotaServiceURL != "" {
		quota := infra.NewQuotaClient(cfg.QuotaServiceURL, nil)
		deps.Quota = quota
		deps.Breakers = append(deps.Breakers, quota.Breaker())
	} else {
		log.Warn().Msg("QUOTA_SERVICE_URL not set; every capability check is allowed")
		deps.Quota = infra.AllowAllQuota{}
	}

	if cfg.IndexServiceURL != "" {
		index := infra.NewIndexClient(cfg.IndexServiceURL, nil)
		deps.Index = index
		deps.Breakers = append(deps.Breakers, index.Breaker())
	}

	// Shift reports are rendered and mailed off the request path.
	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	dispatcher := worker.NewDispatcher(rdb)
	deps.Reports = dispatcher

	var mailer worker.ReportMailer
	if m := infra.NewMailer(cfg); m.Configured() {
		mailer = m
	} else {
		log.Warn().Msg("SMTP_HOST not set; shift reports are rendered but not mailed")
	}
	reports := worker.NewShiftReportWorker(mailer, cfg.Recipients(), cfg.ReportStoragePath,
		infra.GenerateShiftSummaryPDF,
		infra.GenerateShiftSummaryXLSX,
	)
	worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobShiftReport: reports,
	}).Start(ctx, cfg.WorkerPoolSize)

	r := router.New(cfg, db, rdb, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("parkcore listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel() // stop the worker pool
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}
