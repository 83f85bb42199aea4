// Package http exposes the recording pipeline over a REST surface. The
// routes mirror the UI events that drive a session: start, chunk arrival,
// pause/resume, stop, discard.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voicenote-transcriber/internal/observability"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(api *API) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", api.startSession)
			r.Get("/{transcriptID}", api.sessionStatus)
			r.Post("/{transcriptID}/chunks", api.pushChunk)
			r.Post("/{transcriptID}/pause", api.pauseSession)
			r.Post("/{transcriptID}/resume", api.resumeSession)
			r.Post("/{transcriptID}/stop", api.stopSession)
			r.Delete("/{transcriptID}", api.discardSession)
		})

		r.Route("/transcripts", func(r chi.Router) {
			r.Get("/", api.listTranscripts)
			r.Get("/{transcriptID}", api.getTranscript)
			r.Delete("/{transcriptID}", api.deleteTranscript)
			r.Get("/{transcriptID}/audio", api.transcriptAudio)
			r.Get("/{transcriptID}/export", api.exportTranscript)
			r.Put("/{transcriptID}/speakers/{speakerNumber}", api.labelSpeaker)
			r.Post("/{transcriptID}/summary", api.createSummary)
			r.Get("/{transcriptID}/summary", api.getSummary)
		})

		r.Post("/uploads", api.uploadAudio)

		r.Get("/settings", api.getSettings)
		r.Put("/settings", api.putSettings)
	})

	return r
}
