package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/recognizer/mock"
	"voicenote-transcriber/internal/storage"
	"voicenote-transcriber/internal/store"
)

func newTestBatch(t *testing.T, rec *mock.Recognizer) (*Batch, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	blobs, err := storage.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	b := NewBatch(s, blobs, rec, nil, nil, zerolog.Nop(), UploadLimits{MinBytes: 10, MaxBytes: 1 << 20})
	return b, s
}

func TestBatchProcessSuccess(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Words: mock.WordSeq("uploaded", "file", "words")})
	b, s := newTestBatch(t, rec)

	tr, err := b.Process(ctx, "alice", "meeting.webm", webmStream(), "audio/webm")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if tr.Status != models.StatusCompleted {
		t.Errorf("status = %q", tr.Status)
	}
	if tr.Source != models.SourceUpload {
		t.Errorf("source = %q", tr.Source)
	}

	words, _ := s.Words(ctx, tr.ID)
	if len(words) != 3 {
		t.Errorf("stored %d words, want 3", len(words))
	}
	if _, err := s.Artifact(ctx, tr.ID); err != nil {
		t.Errorf("artifact missing: %v", err)
	}

	// One-shot: the whole file goes out in a single call.
	if rec.Calls() != 1 {
		t.Errorf("calls = %d, want 1", rec.Calls())
	}
}

func TestBatchProcessValidationRejectsBeforeAnyWork(t *testing.T) {
	rec := mock.New()
	b, s := newTestBatch(t, rec)

	_, err := b.Process(context.Background(), "alice", "x", []byte("tiny"), "audio/webm")
	if !errors.Is(err, ErrUploadTooSmall) {
		t.Fatalf("err = %v, want ErrUploadTooSmall", err)
	}
	if rec.Calls() != 0 {
		t.Errorf("recognizer called for rejected upload")
	}
	trs, _ := s.List(context.Background(), "alice")
	if len(trs) != 0 {
		t.Errorf("transcript created for rejected upload")
	}
}

func TestBatchProcessUnsupportedFormat(t *testing.T) {
	b, _ := newTestBatch(t, mock.New())

	_, err := b.Process(context.Background(), "alice", "x", make([]byte, 100), "video/mp4")
	if !errors.Is(err, ErrUploadUnsupportedFmt) {
		t.Fatalf("err = %v, want ErrUploadUnsupportedFmt", err)
	}
}

func TestBatchProcessRecognitionFailureMarksError(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Err: errors.New("service unavailable")})
	b, s := newTestBatch(t, rec)

	tr, err := b.Process(ctx, "alice", "x", webmStream(), "audio/webm")
	if err == nil {
		t.Fatal("expected error")
	}

	got, gerr := s.Transcript(ctx, tr.ID)
	if gerr != nil {
		t.Fatalf("Transcript: %v", gerr)
	}
	if got.Status != models.StatusError {
		t.Errorf("status = %q, want error", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Error("no error message recorded")
	}
	// Audio stays put so a retry does not re-upload.
	if _, aerr := s.Artifact(ctx, tr.ID); aerr != nil {
		t.Errorf("artifact missing after failed transcription: %v", aerr)
	}
}

func TestBatchDurationFromReportedMediaDuration(t *testing.T) {
	ctx := context.Background()
	words := mock.WordSeq("a", "b", "c", "d") // media duration 1.9s
	rec := mock.New(mock.Step{Words: words})
	b, s := newTestBatch(t, rec)

	tr, err := b.Process(ctx, "alice", "x", webmStream(), "audio/webm")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := s.Transcript(ctx, tr.ID)
	if got.Duration != 2 {
		t.Errorf("duration = %d, want 2", got.Duration)
	}
}
