package session

import (
	"bytes"
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/events"
	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/observability/metrics"
	"voicenote-transcriber/internal/recognizer"
	"voicenote-transcriber/internal/storage"
)

// Batch transcribes pre-recorded uploads in one shot: the whole file is
// recognized at once, so there is no offset reconciliation — the full word
// list is stored with an implicit offset of zero.
type Batch struct {
	store  SessionStore
	blobs  storage.BlobStore
	rec    recognizer.Recognizer
	pub    *events.Publisher
	met    *metrics.Metrics
	log    zerolog.Logger
	limits UploadLimits
}

func NewBatch(store SessionStore, blobs storage.BlobStore, rec recognizer.Recognizer, pub *events.Publisher, met *metrics.Metrics, log zerolog.Logger, limits UploadLimits) *Batch {
	if met == nil {
		met = metrics.DefaultMetrics
	}
	return &Batch{store: store, blobs: blobs, rec: rec, pub: pub, met: met, log: log, limits: limits}
}

// Process validates, persists, and transcribes an uploaded file. On
// recognition failure the transcript ends in error status with a message;
// the audio artifact is kept either way so a retry does not re-upload.
func (b *Batch) Process(ctx context.Context, ownerID, title string, audio []byte, contentType string) (models.Transcript, error) {
	if err := ValidateUpload(int64(len(audio)), contentType, b.limits); err != nil {
		b.met.RecordUploadRejected(err.Error())
		return models.Transcript{}, err
	}

	tr, err := b.store.CreateFromUpload(ctx, ownerID, title)
	if err != nil {
		return models.Transcript{}, err
	}
	b.met.RecordUpload()

	ref, err := b.blobs.Upload(ctx, tr.ID+extensionOf(contentType), contentType, bytes.NewReader(audio))
	if err != nil {
		b.fail(ctx, tr, "storing audio failed: "+err.Error())
		return tr, err
	}
	if err := b.store.SaveArtifact(ctx, models.RecordingArtifact{
		TranscriptID: tr.ID,
		StorageRef:   ref,
		Format:       contentType,
		Size:         int64(len(audio)),
	}); err != nil {
		b.fail(ctx, tr, "recording artifact failed: "+err.Error())
		return tr, err
	}

	settings, err := b.store.Settings(ctx, ownerID)
	if err != nil {
		settings = models.DefaultSettings()
	}

	start := time.Now()
	res, err := b.rec.Recognize(ctx, recognizer.Request{
		Audio:       audio,
		ContentType: contentType,
		Language:    settings.Language,
		Punctuate:   settings.AutoPunctuation,
	})
	b.met.RecordRecognition(b.rec.Provider(), "batch", len(audio), err, time.Since(start).Seconds())
	if err != nil {
		b.fail(ctx, tr, "transcription failed: "+err.Error())
		return tr, err
	}

	if err := b.store.AppendWords(ctx, tr.ID, res.Words); err != nil {
		b.fail(ctx, tr, "storing words failed: "+err.Error())
		return tr, err
	}
	b.met.RecordWordsAppended(len(res.Words))

	duration := int(math.Round(res.MediaDurationSeconds))
	if duration == 0 && len(res.Words) > 0 {
		duration = int(math.Ceil(res.Words[len(res.Words)-1].EndTime))
	}
	if err := b.store.Complete(ctx, tr.ID, duration); err != nil {
		b.fail(ctx, tr, "completing transcript failed: "+err.Error())
		return tr, err
	}

	b.publishStatus(ctx, tr, models.StatusCompleted, duration, "")
	b.log.Info().
		Str("transcript_id", tr.ID).
		Int("words", len(res.Words)).
		Int("duration_s", duration).
		Msg("upload transcribed")

	tr.Status = models.StatusCompleted
	tr.Duration = duration
	return tr, nil
}

func (b *Batch) fail(ctx context.Context, tr models.Transcript, message string) {
	if err := b.store.MarkError(ctx, tr.ID, message); err != nil {
		b.log.Error().Err(err).Str("transcript_id", tr.ID).Msg("failed to record upload error")
	}
	b.publishStatus(ctx, tr, models.StatusError, 0, message)
}

func (b *Batch) publishStatus(ctx context.Context, tr models.Transcript, status models.Status, duration int, errMsg string) {
	if b.pub == nil {
		return
	}
	_ = b.pub.PublishStatus(ctx, tr.ID, models.StatusChanged{
		EventType:    "transcript.status.changed",
		TranscriptID: tr.ID,
		OwnerID:      tr.OwnerID,
		Timestamp:    time.Now().UnixMilli(),
		Status:       status,
		Duration:     duration,
		ErrorMessage: errMsg,
	})
}
