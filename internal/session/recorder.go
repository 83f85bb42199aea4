package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/events"
	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/observability/metrics"
	"voicenote-transcriber/internal/recognizer"
	"voicenote-transcriber/internal/storage"
)

// SessionStore is everything a live session needs from persistence.
// *store.Store satisfies it.
type SessionStore interface {
	WordSink
	TranscriptStore
	CreateTranscript(ctx context.Context, ownerID, title string) (models.Transcript, error)
	CreateFromUpload(ctx context.Context, ownerID, title string) (models.Transcript, error)
	Delete(ctx context.Context, transcriptID string) error
	Settings(ctx context.Context, ownerID string) (models.UserSettings, error)
}

// RecorderConfig wires one recording session.
type RecorderConfig struct {
	OwnerID string
	Title   string

	Device     CaptureDevice
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

// Recorder orchestrates one live recording: capture lifecycle, the elapsed
// clock, chunk buffering, incremental recognition, and finalization.
//
// State transitions:
//
//	IDLE → RECORDING ⇄ PAUSED
//	RECORDING|PAUSED → STOPPING → STOPPED   (stop, resolves after persistence)
//	RECORDING|PAUSED → IDLE                 (discard, leaves no trace)
type Recorder struct {
	cfg RecorderConfig
	log zerolog.Logger
	met *metrics.Metrics

	mu           sync.Mutex
	state        State
	pauseCause   PauseCause
	elapsed      int
	mimeType     string
	transcriptID string

	buf   *ChunkBuffer
	coord *Coordinator
	fin   *Finalizer

	ticker   *time.Ticker
	tickStop chan struct{}
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	met := cfg.Metrics
	if met == nil {
		met = metrics.DefaultMetrics
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Recorder{
		cfg:   cfg,
		log:   cfg.Logger,
		met:   met,
		state: StateIdle,
	}
}

// Start acquires the capture device, negotiates a container format, creates
// the backing transcript, and begins the elapsed clock. On device failure
// the session stays Idle with no transcript side effects.
func (r *Recorder) Start(ctx context.Context) (models.Transcript, error) {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return models.Transcript{}, ErrAlreadyRecording
	}
	r.mu.Unlock()

	if err := r.cfg.Device.Acquire(ctx); err != nil {
		r.log.Warn().Err(err).Msg("capture device acquisition failed")
		return models.Transcript{}, err
	}

	mimeType := NegotiateMimeType(PreferredMimeTypes, r.cfg.Device.Supports, r.cfg.Device.DefaultMimeType())

	settings, err := r.cfg.Store.Settings(ctx, r.cfg.OwnerID)
	if err != nil {
		settings = models.DefaultSettings()
	}

	tr, err := r.cfg.Store.CreateTranscript(ctx, r.cfg.OwnerID, r.cfg.Title)
	if err != nil {
		r.cfg.Device.Release()
		return models.Transcript{}, err
	}

	buf := NewChunkBuffer(r.cfg.MinChunkBytes)
	coord := NewCoordinator(CoordinatorConfig{
		TranscriptID:     tr.ID,
		OwnerID:          r.cfg.OwnerID,
		Buffer:           buf,
		Recognizer:       r.cfg.Recognizer,
		Sink:             r.cfg.Store,
		Publisher:        r.cfg.Publisher,
		Metrics:          r.met,
		Logger:           r.log.With().Str("transcript_id", tr.ID).Logger(),
		MinSnapshotBytes: r.cfg.MinSnapshotBytes,
		MimeType:         mimeType,
		Language:         settings.Language,
		Punctuate:        settings.AutoPunctuation,
	})
	fin := NewFinalizer(r.cfg.Store, r.cfg.Blobs, r.cfg.Publisher, r.met, r.log)

	r.mu.Lock()
	r.state = StateRecording
	r.pauseCause = PauseNone
	r.elapsed = 0
	r.mimeType = mimeType
	r.transcriptID = tr.ID
	r.buf = buf
	r.coord = coord
	r.fin = fin
	r.tickStop = make(chan struct{})
	r.ticker = time.NewTicker(r.cfg.TickInterval)
	r.mu.Unlock()

	go r.runClock(r.ticker, r.tickStop)

	r.met.RecordSessionStart()
	r.log.Info().
		Str("transcript_id", tr.ID).
		Str("mime_type", mimeType).
		Str("language", settings.Language).
		Msg("recording started")
	return tr, nil
}

// runClock increments elapsed once per tick, only while Recording. The
// clock is independent of chunk arrival and stops the instant state leaves
// Recording.
func (r *Recorder) runClock(ticker *time.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Recorder) tick() {
	r.mu.Lock()
	if r.state == StateRecording {
		r.elapsed++
	}
	r.mu.Unlock()
}

// PushChunk appends a captured chunk and nudges the coordinator. Chunks
// below the size threshold are dropped silently as corrupt capture ticks.
func (r *Recorder) PushChunk(ctx context.Context, chunk []byte) error {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return ErrNotRecording
	}
	buf, coord := r.buf, r.coord
	r.mu.Unlock()

	kept := buf.Append(chunk)
	r.met.RecordChunk(!kept)
	if !kept {
		r.log.Debug().Int("bytes", len(chunk)).Msg("dropped undersized chunk")
		return nil
	}

	// Recognition outlives the chunk upload request.
	coord.OnChunk(context.WithoutCancel(ctx))
	return nil
}

// Pause suspends the clock and chunk intake. cause records whether the
// user paused or the app was backgrounded; the distinction is surfaced to
// the caller, resume is explicit either way.
func (r *Recorder) Pause(cause PauseCause) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return ErrNotRecording
	}
	r.state = StatePaused
	r.pauseCause = cause
	r.log.Info().Str("cause", cause.String()).Int("elapsed_s", r.elapsed).Msg("recording paused")
	return nil
}

// Resume restarts the clock after a pause.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return ErrNotPaused
	}
	r.state = StateRecording
	r.pauseCause = PauseNone
	r.log.Info().Int("elapsed_s", r.elapsed).Msg("recording resumed")
	return nil
}

// Stop ends capture and finalizes. The returned channel resolves only
// after the audio is durably persisted (or finalization failed), so a
// caller can navigate away without losing data.
func (r *Recorder) Stop(ctx context.Context) (<-chan error, error) {
	r.mu.Lock()
	if r.state != StateRecording && r.state != StatePaused {
		r.mu.Unlock()
		if r.state == StateStopped || r.state == StateStopping {
			return nil, ErrStopped
		}
		return nil, ErrNotActive
	}
	r.state = StateStopping
	elapsed := r.elapsed
	transcriptID := r.transcriptID
	mimeType := r.mimeType
	buf, coord, fin := r.buf, r.coord, r.fin
	stop := r.tickStop
	r.mu.Unlock()

	close(stop)
	r.cfg.Device.Release()

	done := make(chan error, 1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		// Let an in-flight recognition request land its words first.
		coord.Wait()

		err := fin.Finalize(ctx, transcriptID, r.cfg.OwnerID, mimeType, buf.Snapshot(), elapsed)

		r.mu.Lock()
		r.state = StateStopped
		r.mu.Unlock()
		r.met.RecordSessionEnd(err == nil, float64(elapsed))
		done <- err
	}()
	return done, nil
}

// Discard drops the session without finalizing: buffered audio, the
// transcript record, and any words already reconciled are all removed. A
// recognition response still in flight is ignored when it arrives.
func (r *Recorder) Discard(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateRecording && r.state != StatePaused {
		r.mu.Unlock()
		return ErrNotActive
	}
	elapsed := r.elapsed
	transcriptID := r.transcriptID
	buf, coord := r.buf, r.coord
	stop := r.tickStop
	r.state = StateIdle
	r.pauseCause = PauseNone
	r.elapsed = 0
	r.transcriptID = ""
	r.mu.Unlock()

	close(stop)
	r.cfg.Device.Release()
	coord.Invalidate()
	buf.Clear()

	if err := r.cfg.Store.Delete(ctx, transcriptID); err != nil {
		return err
	}
	r.met.RecordSessionEnd(false, float64(elapsed))
	r.log.Info().Str("transcript_id", transcriptID).Msg("recording discarded")
	return nil
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns whole recorded seconds, excluding paused time.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// PausedBy reports why the session is paused, PauseNone when it is not.
func (r *Recorder) PausedBy() PauseCause {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseCause
}

// TranscriptID returns the backing transcript's ID, empty before Start.
func (r *Recorder) TranscriptID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcriptID
}

// MimeType returns the negotiated container format.
func (r *Recorder) MimeType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mimeType
}
