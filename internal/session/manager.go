package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/events"
	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/observability/metrics"
	"voicenote-transcriber/internal/recognizer"
	"voicenote-transcriber/internal/storage"
)

// ErrNoSession is returned when no active recorder exists for a transcript.
var ErrNoSession = errors.New("session: no active session for transcript")

// ManagerConfig carries the shared collaborators every session uses.
type ManagerConfig struct {
	Recognizer recognizer.Recognizer
	Store      SessionStore
	Blobs      storage.BlobStore
	Publisher  *events.Publisher
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger

	MinChunkBytes    int
	MinSnapshotBytes int
	TickInterval     time.Duration
}

// Manager owns active recording sessions, one per transcript. Session
// state is never shared between recordings: each gets its own buffer,
// coordinator, and offset counter.
type Manager struct {
	cfg ManagerConfig

	mu     sync.Mutex
	active map[string]*Recorder
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg, active: make(map[string]*Recorder)}
}

// Start creates a recorder for a new session and begins recording.
func (m *Manager) Start(ctx context.Context, ownerID, title string, device CaptureDevice) (models.Transcript, error) {
	if device == nil {
		device = RemoteDevice{}
	}
	rec := NewRecorder(RecorderConfig{
		OwnerID:          ownerID,
		Title:            title,
		Device:           device,
		Recognizer:       m.cfg.Recognizer,
		Store:            m.cfg.Store,
		Blobs:            m.cfg.Blobs,
		Publisher:        m.cfg.Publisher,
		Metrics:          m.cfg.Metrics,
		Logger:           m.cfg.Logger,
		MinChunkBytes:    m.cfg.MinChunkBytes,
		MinSnapshotBytes: m.cfg.MinSnapshotBytes,
		TickInterval:     m.cfg.TickInterval,
	})

	tr, err := rec.Start(ctx)
	if err != nil {
		return models.Transcript{}, err
	}

	m.mu.Lock()
	m.active[tr.ID] = rec
	m.mu.Unlock()
	return tr, nil
}

// Get returns the active recorder for a transcript.
func (m *Manager) Get(transcriptID string) (*Recorder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.active[transcriptID]
	if !ok {
		return nil, ErrNoSession
	}
	return rec, nil
}

// Stop finalizes the session and waits for durable persistence.
func (m *Manager) Stop(ctx context.Context, transcriptID string) error {
	rec, err := m.Get(transcriptID)
	if err != nil {
		return err
	}
	done, err := rec.Stop(ctx)
	if err != nil {
		return err
	}

	err = <-done
	m.remove(transcriptID)
	return err
}

// Discard drops the session and deletes its transcript.
func (m *Manager) Discard(ctx context.Context, transcriptID string) error {
	rec, err := m.Get(transcriptID)
	if err != nil {
		return err
	}
	if err := rec.Discard(ctx); err != nil {
		return err
	}
	m.remove(transcriptID)
	return nil
}

// Shutdown stops every active session, used on graceful service exit so
// in-progress recordings are persisted rather than dropped.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Stop(ctx, id); err != nil && !errors.Is(err, ErrNoSession) {
			m.cfg.Logger.Error().Err(err).Str("transcript_id", id).Msg("failed to finalize session on shutdown")
		}
	}
}

func (m *Manager) remove(transcriptID string) {
	m.mu.Lock()
	delete(m.active, transcriptID)
	m.mu.Unlock()
}
