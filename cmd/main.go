package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"voicenote-transcriber/internal/app"
	"voicenote-transcriber/internal/config"
	api "voicenote-transcriber/internal/http"
	"voicenote-transcriber/internal/observability"
	"voicenote-transcriber/internal/observability/logging"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("application startup failed")
	}

	apiCfg := api.APIConfig{
		Sessions:  a.Sessions,
		Batch:     a.Batch,
		Store:     a.Store,
		Blobs:     a.Blobs,
		MaxUpload: cfg.Session.MaxUploadBytes,
		Logger:    logging.WithComponent("http"),
	}
	if a.Summarizer != nil {
		apiCfg.Summarizer = a.Summarizer
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           api.NewRouter(api.NewAPI(apiCfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	obsServer := observability.NewServer(cfg.Observability.MetricsAddr)
	obsServer.Start()

	go func() {
		a.Logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	<-ctx.Done()
	a.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http shutdown failed")
	}
	a.Shutdown(shutdownCtx)
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("observability shutdown failed")
	}
}
