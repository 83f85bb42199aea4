// Package app builds the service's object graph from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/config"
	"voicenote-transcriber/internal/events"
	"voicenote-transcriber/internal/observability/logging"
	"voicenote-transcriber/internal/observability/metrics"
	"voicenote-transcriber/internal/recognizer"
	"voicenote-transcriber/internal/recognizer/deepgram"
	"voicenote-transcriber/internal/recognizer/google"
	"voicenote-transcriber/internal/recognizer/mock"
	"voicenote-transcriber/internal/session"
	"voicenote-transcriber/internal/storage"
	"voicenote-transcriber/internal/storage/supabase"
	"voicenote-transcriber/internal/store"
	"voicenote-transcriber/internal/summary"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Store      *store.Store
	Blobs      storage.BlobStore
	Recognizer recognizer.Recognizer
	Publisher  *events.Publisher
	Sessions   *session.Manager
	Batch      *session.Batch
	Summarizer *summary.Summarizer
}

// New constructs the full application from configuration.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	logger := logging.WithComponent("application")

	a := &Application{
		StartupTime: time.Now().UTC(),
		Logger:      logger,
		Cfg:         cfg,
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = st

	a.Blobs, err = buildBlobStore(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	a.Recognizer, err = buildRecognizer(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	a.Publisher = events.New(&events.Config{
		Enabled:     cfg.Kafka.Enabled,
		Brokers:     cfg.Kafka.Brokers,
		TopicWords:  cfg.Kafka.TopicWords,
		TopicStatus: cfg.Kafka.TopicStatus,
		Principal:   cfg.Service.Principal,
	})

	a.Sessions = session.NewManager(session.ManagerConfig{
		Recognizer:       a.Recognizer,
		Store:            st,
		Blobs:            a.Blobs,
		Publisher:        a.Publisher,
		Metrics:          metrics.DefaultMetrics,
		Logger:           logging.WithComponent("session"),
		MinChunkBytes:    cfg.Session.MinChunkBytes,
		MinSnapshotBytes: cfg.Session.MinSnapshotBytes,
		TickInterval:     cfg.Session.TickInterval,
	})

	a.Batch = session.NewBatch(st, a.Blobs, a.Recognizer, a.Publisher,
		metrics.DefaultMetrics, logging.WithComponent("batch"),
		session.UploadLimits{
			MinBytes: cfg.Session.MinUploadBytes,
			MaxBytes: cfg.Session.MaxUploadBytes,
		})

	if cfg.Summary.APIKey != "" {
		a.Summarizer, err = summary.New(cfg.Summary.APIKey, cfg.Summary.Model, st,
			logging.WithComponent("summary"))
		if err != nil {
			logger.Warn().Err(err).Msg("summarization disabled")
		}
	} else {
		logger.Info().Msg("no summarization API key configured, summaries disabled")
	}

	logger.Info().
		Str("stt_provider", a.Recognizer.Provider()).
		Str("storage_backend", cfg.Storage.Backend).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("application created")
	return a, nil
}

// Shutdown finalizes active sessions and releases resources.
func (a *Application) Shutdown(ctx context.Context) {
	a.Logger.Info().Msg("shutting down, finalizing active sessions")
	a.Sessions.Shutdown(ctx)
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("closing event publisher failed")
	}
	if c, ok := a.Recognizer.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("closing recognizer failed")
		}
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("closing store failed")
	}
}

func buildBlobStore(cfg *config.Configuration) (storage.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "supabase":
		return supabase.New(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey, cfg.Storage.SupabaseBucket)
	case "dir", "":
		return storage.NewDir(cfg.Storage.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildRecognizer(ctx context.Context, cfg *config.Configuration) (recognizer.Recognizer, error) {
	switch cfg.Recognizer.Provider {
	case "deepgram":
		if cfg.Recognizer.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("deepgram provider selected but no API key configured")
		}
		return deepgram.New(cfg.Recognizer.DeepgramAPIKey, cfg.Recognizer.DeepgramModel), nil
	case "google":
		return google.New(ctx, cfg.Recognizer.SampleRateHz)
	case "mock", "":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Recognizer.Provider)
	}
}
