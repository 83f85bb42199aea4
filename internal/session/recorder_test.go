package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/recognizer/mock"
	"voicenote-transcriber/internal/storage"
	"voicenote-transcriber/internal/store"
)

// testDevice is a scripted capture device.
type testDevice struct {
	acquireErr error
	supported  map[string]bool
	released   int
}

func (d *testDevice) Acquire(ctx context.Context) error { return d.acquireErr }
func (d *testDevice) Supports(mt string) bool           { return d.supported[mt] }
func (d *testDevice) DefaultMimeType() string           { return "audio/webm" }
func (d *testDevice) Release()                          { d.released++ }

// webmStream builds a minimal streamed WebM buffer: EBML header,
// unknown-size Segment, Info without Duration, one cluster. Padded so it
// clears chunk and snapshot thresholds.
func webmStream() []byte {
	out := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x84, 0x42, 0x86, 0x81, 0x01}
	out = append(out, 0x18, 0x53, 0x80, 0x67, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	out = append(out, 0x15, 0x49, 0xA9, 0x66, 0x87, 0x2A, 0xD7, 0xB1, 0x83, 0x0F, 0x42, 0x40)
	cluster := []byte{0x1F, 0x43, 0xB6, 0x75, 0x40, 0xC8}
	cluster = append(cluster, make([]byte, 200)...)
	return append(out, cluster...)
}

func newTestRecorder(t *testing.T, rec *mock.Recognizer, device CaptureDevice) (*Recorder, *store.Store, *storage.Dir) {
	t.Helper()
	s := newTestStore(t)
	blobs, err := storage.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if device == nil {
		device = &testDevice{supported: map[string]bool{"audio/webm;codecs=opus": true}}
	}
	r := NewRecorder(RecorderConfig{
		OwnerID:          "alice",
		Title:            "test session",
		Device:           device,
		Recognizer:       rec,
		Store:            s,
		Blobs:            blobs,
		Logger:           zerolog.Nop(),
		MinChunkBytes:    45,
		MinSnapshotBytes: 100,
		TickInterval:     time.Hour, // tests drive the clock by hand
	})
	return r, s, blobs
}

func TestRecorderStartNegotiatesAndCreatesTranscript(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newTestRecorder(t, mock.New(), nil)

	tr, err := r.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != StateRecording {
		t.Errorf("state = %v, want RECORDING", r.State())
	}
	if r.MimeType() != "audio/webm;codecs=opus" {
		t.Errorf("mimeType = %q", r.MimeType())
	}

	got, err := s.Transcript(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if got.Status != models.StatusRecording {
		t.Errorf("status = %q", got.Status)
	}
}

func TestRecorderStartDeviceErrors(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		errIn   error
		wantErr error
	}{
		{"permission denied", ErrPermissionDenied, ErrPermissionDenied},
		{"hardware failure", ErrDeviceFailure, ErrDeviceFailure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, s, _ := newTestRecorder(t, mock.New(), &testDevice{acquireErr: c.errIn})

			_, err := r.Start(ctx)
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("err = %v, want %v", err, c.wantErr)
			}
			if r.State() != StateIdle {
				t.Errorf("state = %v, want IDLE", r.State())
			}
			// No transcript side effects on device failure.
			trs, _ := s.List(ctx, "alice")
			if len(trs) != 0 {
				t.Errorf("%d transcripts created", len(trs))
			}
		})
	}
}

func TestRecorderFallsBackToDeviceDefault(t *testing.T) {
	r, _, _ := newTestRecorder(t, mock.New(), &testDevice{supported: map[string]bool{}})
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.MimeType() != "audio/webm" {
		t.Errorf("mimeType = %q, want device default", r.MimeType())
	}
}

func TestRecorderClockSuspendedWhilePaused(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRecorder(t, mock.New(), nil)
	if _, err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 6; i++ {
		r.tick()
	}
	if r.Elapsed() != 6 {
		t.Fatalf("elapsed = %d, want 6", r.Elapsed())
	}

	if err := r.Pause(PauseByUser); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	for i := 0; i < 4; i++ {
		r.tick() // must not increment while paused
	}
	if r.Elapsed() != 6 {
		t.Errorf("elapsed = %d while paused, want 6", r.Elapsed())
	}

	if err := r.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	for i := 0; i < 10; i++ {
		r.tick()
	}
	if r.Elapsed() != 16 {
		t.Errorf("elapsed = %d after resume, want 16", r.Elapsed())
	}
}

func TestRecorderPauseCause(t *testing.T) {
	r, _, _ := newTestRecorder(t, mock.New(), nil)
	r.Start(context.Background())

	r.Pause(PauseByBackground)
	if r.PausedBy() != PauseByBackground {
		t.Errorf("cause = %v, want background", r.PausedBy())
	}
	r.Resume()
	if r.PausedBy() != PauseNone {
		t.Errorf("cause = %v after resume, want none", r.PausedBy())
	}
}

func TestRecorderInvalidTransitions(t *testing.T) {
	r, _, _ := newTestRecorder(t, mock.New(), nil)

	if err := r.Pause(PauseByUser); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Pause idle = %v", err)
	}
	if err := r.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume idle = %v", err)
	}
	if _, err := r.Stop(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Errorf("Stop idle = %v", err)
	}
	if err := r.PushChunk(context.Background(), chunk(100)); !errors.Is(err, ErrNotRecording) {
		t.Errorf("PushChunk idle = %v", err)
	}

	r.Start(context.Background())
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("double Start = %v", err)
	}
	r.Pause(PauseByUser)
	if err := r.PushChunk(context.Background(), chunk(100)); !errors.Is(err, ErrNotRecording) {
		t.Errorf("PushChunk paused = %v", err)
	}
}

func TestRecorderStopFinalizesAndPersists(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Words: mock.WordSeq("hello", "world")})
	device := &testDevice{supported: map[string]bool{"audio/webm;codecs=opus": true}}
	r, s, blobs := newTestRecorder(t, rec, device)

	tr, err := r.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.PushChunk(ctx, webmStream()); err != nil {
		t.Fatalf("PushChunk: %v", err)
	}
	for i := 0; i < 9; i++ {
		r.tick()
	}

	done, err := r.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if r.State() != StateStopped {
		t.Errorf("state = %v, want STOPPED", r.State())
	}
	if device.released == 0 {
		t.Error("device not released on stop")
	}

	got, _ := s.Transcript(ctx, tr.ID)
	if got.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.Duration != 9 {
		t.Errorf("duration = %d, want 9", got.Duration)
	}
	words, _ := s.Words(ctx, tr.ID)
	if len(words) != 2 {
		t.Errorf("stored %d words, want 2", len(words))
	}

	artifact, err := s.Artifact(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	if artifact.Size == 0 || artifact.Format != "audio/webm;codecs=opus" {
		t.Errorf("artifact = %+v", artifact)
	}
	if _, err := blobs.URL(ctx, artifact.StorageRef); err != nil {
		t.Errorf("blob missing: %v", err)
	}

	// Terminal: a second stop is rejected.
	if _, err := r.Stop(ctx); !errors.Is(err, ErrStopped) {
		t.Errorf("second Stop = %v", err)
	}
}

func TestRecorderDiscardLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Words: mock.WordSeq("a", "b", "c")})
	device := &testDevice{supported: map[string]bool{"audio/webm;codecs=opus": true}}
	r, s, _ := newTestRecorder(t, rec, device)

	tr, _ := r.Start(ctx)
	r.PushChunk(ctx, webmStream())
	r.coord.Wait() // let recognition land words before discarding

	if err := r.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v, want IDLE", r.State())
	}
	if r.Elapsed() != 0 {
		t.Errorf("elapsed = %d, want 0", r.Elapsed())
	}
	if device.released == 0 {
		t.Error("device not released on discard")
	}

	if _, err := s.Transcript(ctx, tr.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("transcript survives discard: %v", err)
	}
	words, _ := s.Words(ctx, tr.ID)
	if len(words) != 0 {
		t.Errorf("%d words survive discard", len(words))
	}
	if _, err := s.Artifact(ctx, tr.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("artifact exists after discard: %v", err)
	}
}

func TestRecorderDropsUndersizedChunks(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Words: mock.WordSeq("a")})
	r, _, _ := newTestRecorder(t, rec, nil)
	r.Start(ctx)

	if err := r.PushChunk(ctx, chunk(44)); err != nil {
		t.Fatalf("PushChunk: %v", err)
	}
	r.coord.Wait()
	if rec.Calls() != 0 {
		t.Errorf("calls = %d, want 0 for dropped chunk", rec.Calls())
	}
	if r.buf.Len() != 0 {
		t.Errorf("buffer kept %d chunks", r.buf.Len())
	}
}
