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

func newTestManager(t *testing.T, rec *mock.Recognizer) (*Manager, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	blobs, err := storage.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	m := NewManager(ManagerConfig{
		Recognizer:       rec,
		Store:            s,
		Blobs:            blobs,
		Logger:           zerolog.Nop(),
		MinChunkBytes:    45,
		MinSnapshotBytes: 100,
		TickInterval:     time.Hour,
	})
	return m, s
}

func TestManagerSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Words: mock.WordSeq("a", "b")})
	m, s := newTestManager(t, rec)

	tr, err := m.Start(ctx, "alice", "standup", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	r, err := m.Get(tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := r.PushChunk(ctx, webmStream()); err != nil {
		t.Fatalf("PushChunk: %v", err)
	}

	if err := m.Stop(ctx, tr.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	got, _ := s.Transcript(ctx, tr.ID)
	if got.Status != models.StatusCompleted {
		t.Errorf("status = %q", got.Status)
	}

	// Stopped sessions are no longer tracked.
	if _, err := m.Get(tr.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Get after stop = %v", err)
	}
	if err := m.Stop(ctx, tr.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop after stop = %v", err)
	}
}

func TestManagerDiscard(t *testing.T) {
	ctx := context.Background()
	m, s := newTestManager(t, mock.New())

	tr, _ := m.Start(ctx, "alice", "t", nil)
	if err := m.Discard(ctx, tr.ID); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	if _, err := s.Transcript(ctx, tr.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("transcript survives discard: %v", err)
	}
	if _, err := m.Get(tr.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Get after discard = %v", err)
	}
}

func TestManagerIndependentSessions(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Words: mock.WordSeq("a")})
	m, s := newTestManager(t, rec)

	a, _ := m.Start(ctx, "alice", "one", nil)
	b, _ := m.Start(ctx, "bob", "two", nil)

	ra, _ := m.Get(a.ID)
	ra.PushChunk(ctx, webmStream())
	ra.coord.Wait()

	// Words land only on the session that received chunks.
	wa, _ := s.Words(ctx, a.ID)
	wb, _ := s.Words(ctx, b.ID)
	if len(wa) != 1 || len(wb) != 0 {
		t.Errorf("words: a=%d b=%d", len(wa), len(wb))
	}

	_ = m.Discard(ctx, b.ID)
	if _, err := m.Get(a.ID); err != nil {
		t.Errorf("discarding one session affected another: %v", err)
	}
}

func TestManagerShutdownFinalizesActiveSessions(t *testing.T) {
	ctx := context.Background()
	rec := mock.New(mock.Step{Words: mock.WordSeq("a")})
	m, s := newTestManager(t, rec)

	tr, _ := m.Start(ctx, "alice", "t", nil)
	r, _ := m.Get(tr.ID)
	r.PushChunk(ctx, webmStream())

	m.Shutdown(ctx)

	got, _ := s.Transcript(ctx, tr.ID)
	if got.Status != models.StatusCompleted {
		t.Errorf("status after shutdown = %q, want completed", got.Status)
	}
}
