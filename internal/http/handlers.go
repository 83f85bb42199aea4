package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/export"
	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/segmenter"
	"voicenote-transcriber/internal/session"
	"voicenote-transcriber/internal/storage"
	"voicenote-transcriber/internal/store"
)

// Summarizer generates and persists transcript summaries. Nil when no
// summarization backend is configured.
type Summarizer interface {
	Summarize(ctx context.Context, transcriptID string) (models.Summary, error)
}

// API holds the handler dependencies.
type API struct {
	sessions   *session.Manager
	batch      *session.Batch
	store      *store.Store
	blobs      storage.BlobStore
	summarizer Summarizer
	maxUpload  int64
	log        zerolog.Logger
}

// APIConfig wires the handlers.
type APIConfig struct {
	Sessions   *session.Manager
	Batch      *session.Batch
	Store      *store.Store
	Blobs      storage.BlobStore
	Summarizer Summarizer
	MaxUpload  int64
	Logger     zerolog.Logger
}

func NewAPI(cfg APIConfig) *API {
	return &API{
		sessions:   cfg.Sessions,
		batch:      cfg.Batch,
		store:      cfg.Store,
		blobs:      cfg.Blobs,
		summarizer: cfg.Summarizer,
		maxUpload:  cfg.MaxUpload,
		log:        cfg.Logger,
	}
}

// ownerID resolves the acting user. Authentication is an upstream concern;
// the gateway forwards the identity in a header.
func ownerID(r *http.Request) string {
	if id := r.Header.Get("X-Owner-ID"); id != "" {
		return id
	}
	return "local"
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

// mapError translates domain errors into status codes.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, session.ErrNoSession):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotRecording), errors.Is(err, session.ErrNotPaused),
		errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrStopped),
		errors.Is(err, session.ErrAlreadyRecording):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUploadTooLarge), errors.Is(err, session.ErrUploadTooSmall),
		errors.Is(err, session.ErrUploadUnsupportedFmt):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

type startSessionRequest struct {
	Title string `json:"title"`
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Title == "" {
		req.Title = "Recording " + time.Now().Format("2006-01-02 15:04")
	}

	tr, err := a.sessions.Start(r.Context(), ownerID(r), req.Title, nil)
	if err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusCreated, tr)
}

type sessionStatusResponse struct {
	TranscriptID   string `json:"transcriptId"`
	State          string `json:"state"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	PausedBy       string `json:"pausedBy,omitempty"`
	MimeType       string `json:"mimeType"`
	WordCount      int    `json:"wordCount"`
}

func (a *API) sessionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	rec, err := a.sessions.Get(id)
	if err != nil {
		mapError(w, err)
		return
	}
	n, _ := a.store.WordCount(r.Context(), id)

	resp := sessionStatusResponse{
		TranscriptID:   id,
		State:          rec.State().String(),
		ElapsedSeconds: rec.Elapsed(),
		MimeType:       rec.MimeType(),
		WordCount:      n,
	}
	if cause := rec.PausedBy(); cause != session.PauseNone {
		resp.PausedBy = cause.String()
	}
	respond(w, http.StatusOK, resp)
}

func (a *API) pushChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	rec, err := a.sessions.Get(id)
	if err != nil {
		mapError(w, err)
		return
	}

	chunk, err := io.ReadAll(io.LimitReader(r.Body, a.maxUpload))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading chunk failed")
		return
	}
	if err := rec.PushChunk(r.Context(), chunk); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type pauseRequest struct {
	Cause string `json:"cause"` // "user" or "background"
}

func (a *API) pauseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	rec, err := a.sessions.Get(id)
	if err != nil {
		mapError(w, err)
		return
	}

	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	cause := session.PauseByUser
	if req.Cause == "background" {
		cause = session.PauseByBackground
	}

	if err := rec.Pause(cause); err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"state": rec.State().String(), "pausedBy": cause.String()})
}

func (a *API) resumeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	rec, err := a.sessions.Get(id)
	if err != nil {
		mapError(w, err)
		return
	}
	if err := rec.Resume(); err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"state": rec.State().String()})
}

// stopSession blocks until the recording is durably persisted, so the
// client can navigate to the finished transcript as soon as it returns.
func (a *API) stopSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	if err := a.sessions.Stop(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	tr, err := a.store.Transcript(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusOK, tr)
}

func (a *API) discardSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	if err := a.sessions.Discard(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listTranscripts(w http.ResponseWriter, r *http.Request) {
	trs, err := a.store.List(r.Context(), ownerID(r))
	if err != nil {
		mapError(w, err)
		return
	}
	if trs == nil {
		trs = []models.Transcript{}
	}
	respond(w, http.StatusOK, trs)
}

type transcriptResponse struct {
	models.Transcript
	Words    []models.Word           `json:"words"`
	Segments []models.SpeakerSegment `json:"segments"`
	Speakers []models.SpeakerLabel   `json:"speakers"`
}

func (a *API) getTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	tr, err := a.store.Transcript(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	words, err := a.store.Words(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	labels, err := a.store.SpeakerLabels(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	if words == nil {
		words = []models.Word{}
	}
	respond(w, http.StatusOK, transcriptResponse{
		Transcript: tr,
		Words:      words,
		Segments:   segmenter.Segment(words),
		Speakers:   labels,
	})
}

func (a *API) deleteTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	if _, err := a.store.Transcript(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	if err := a.store.Delete(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) transcriptAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	artifact, err := a.store.Artifact(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	url, err := a.blobs.URL(r.Context(), artifact.StorageRef)
	if err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"url":    url,
		"format": artifact.Format,
		"size":   artifact.Size,
	})
}

func (a *API) exportTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	tr, err := a.store.Transcript(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	words, err := a.store.Words(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	labels, _ := a.store.SpeakerLabels(r.Context(), id)

	content, filename := export.TXT(export.Params{
		Title:    tr.Title,
		Date:     tr.CreatedAt.Format("2006-01-02"),
		Duration: tr.Duration,
		Words:    words,
		Labels:   labels,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

type labelRequest struct {
	Label string `json:"label"`
}

func (a *API) labelSpeaker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	number, err := strconv.Atoi(chi.URLParam(r, "speakerNumber"))
	if err != nil || number < 0 {
		respondError(w, http.StatusBadRequest, "invalid speaker number")
		return
	}
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
		respondError(w, http.StatusBadRequest, "label is required")
		return
	}
	if _, err := a.store.Transcript(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	if err := a.store.UpsertSpeakerLabel(r.Context(), id, number, req.Label); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) createSummary(w http.ResponseWriter, r *http.Request) {
	if a.summarizer == nil {
		respondError(w, http.StatusNotImplemented, "summarization is not configured")
		return
	}
	id := chi.URLParam(r, "transcriptID")
	if _, err := a.store.Transcript(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	sum, err := a.summarizer.Summarize(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusCreated, sum)
}

func (a *API) getSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	sum, err := a.store.Summary(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusOK, sum)
}

// uploadAudio runs the one-shot batch path over a multipart file upload.
func (a *API) uploadAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, a.maxUpload+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading file failed")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	contentType := header.Header.Get("Content-Type")

	tr, err := a.batch.Process(r.Context(), ownerID(r), title, audio, contentType)
	if err != nil {
		// The transcript may exist in error status; return it alongside
		// the failure so the client can show a retryable record.
		if tr.ID != "" {
			respond(w, http.StatusUnprocessableEntity, map[string]any{
				"error":      err.Error(),
				"transcript": tr,
			})
			return
		}
		mapError(w, err)
		return
	}
	respond(w, http.StatusCreated, tr)
}

func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.store.Settings(r.Context(), ownerID(r))
	if err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusOK, settings)
}

func (a *API) putSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if settings.Language == "" {
		respondError(w, http.StatusBadRequest, "language is required")
		return
	}
	if err := a.store.UpsertSettings(r.Context(), ownerID(r), settings); err != nil {
		mapError(w, err)
		return
	}
	respond(w, http.StatusOK, settings)
}
