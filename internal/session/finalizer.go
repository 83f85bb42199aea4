package session

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/events"
	"voicenote-transcriber/internal/media"
	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/observability/metrics"
	"voicenote-transcriber/internal/storage"
)

// TranscriptStore is the slice of the store the finalizer writes through.
type TranscriptStore interface {
	SaveArtifact(ctx context.Context, a models.RecordingArtifact) error
	Complete(ctx context.Context, transcriptID string, durationSeconds int) error
	MarkError(ctx context.Context, transcriptID, message string) error
}

// Finalizer runs once per session on stop: repair the container's duration
// metadata, persist the audio, record the artifact, and complete the
// transcript. Any failure marks the transcript errored instead of letting
// it silently appear complete with missing audio.
type Finalizer struct {
	store TranscriptStore
	blobs storage.BlobStore
	pub   *events.Publisher
	met   *metrics.Metrics
	log   zerolog.Logger
}

func NewFinalizer(store TranscriptStore, blobs storage.BlobStore, pub *events.Publisher, met *metrics.Metrics, log zerolog.Logger) *Finalizer {
	if met == nil {
		met = metrics.DefaultMetrics
	}
	return &Finalizer{store: store, blobs: blobs, pub: pub, met: met, log: log}
}

// Finalize persists the session's audio and completes its transcript.
// audio is the full cumulative snapshot; elapsedSeconds the recording clock
// excluding paused time.
func (f *Finalizer) Finalize(ctx context.Context, transcriptID, ownerID, mimeType string, audio []byte, elapsedSeconds int) error {
	err := f.finalize(ctx, transcriptID, ownerID, mimeType, audio, elapsedSeconds)
	f.met.RecordFinalize(err)
	if err != nil {
		f.log.Error().Err(err).Str("transcript_id", transcriptID).Msg("finalize failed")
		if markErr := f.store.MarkError(ctx, transcriptID, err.Error()); markErr != nil {
			f.log.Error().Err(markErr).Str("transcript_id", transcriptID).Msg("failed to record finalize error")
		}
		f.publishStatus(ctx, transcriptID, ownerID, models.StatusError, elapsedSeconds, err.Error())
		return err
	}
	f.publishStatus(ctx, transcriptID, ownerID, models.StatusCompleted, elapsedSeconds, "")
	return nil
}

func (f *Finalizer) finalize(ctx context.Context, transcriptID, ownerID, mimeType string, audio []byte, elapsedSeconds int) error {
	if len(audio) == 0 {
		return fmt.Errorf("finalize: no audio captured")
	}

	// Streamed WebM carries no duration; patch it so playback can seek.
	// Non-WebM containers are stored as captured.
	blob := audio
	if strings.Contains(mimeType, "webm") {
		patched, err := media.PatchDuration(audio, time.Duration(elapsedSeconds)*time.Second)
		if err != nil {
			return fmt.Errorf("repair duration metadata: %w", err)
		}
		blob = patched
	}

	name := transcriptID + extensionOf(mimeType)
	ref, err := f.blobs.Upload(ctx, name, mimeType, bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("persist audio: %w", err)
	}

	if err := f.store.SaveArtifact(ctx, models.RecordingArtifact{
		TranscriptID: transcriptID,
		StorageRef:   ref,
		Format:       mimeType,
		Size:         int64(len(blob)),
	}); err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}

	if err := f.store.Complete(ctx, transcriptID, elapsedSeconds); err != nil {
		return fmt.Errorf("complete transcript: %w", err)
	}

	f.log.Info().
		Str("transcript_id", transcriptID).
		Str("storage_ref", ref).
		Int("bytes", len(blob)).
		Int("duration_s", elapsedSeconds).
		Msg("session finalized")
	return nil
}

func (f *Finalizer) publishStatus(ctx context.Context, transcriptID, ownerID string, status models.Status, duration int, errMsg string) {
	if f.pub == nil {
		return
	}
	_ = f.pub.PublishStatus(ctx, transcriptID, models.StatusChanged{
		EventType:    "transcript.status.changed",
		TranscriptID: transcriptID,
		OwnerID:      ownerID,
		Timestamp:    time.Now().UnixMilli(),
		Status:       status,
		Duration:     duration,
		ErrorMessage: errMsg,
	})
}

func extensionOf(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mp4"):
		return ".m4a"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	default:
		return ".bin"
	}
}
