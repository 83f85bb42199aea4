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
)

// WordSink is the slice of the store the coordinator writes through.
type WordSink interface {
	AppendWords(ctx context.Context, transcriptID string, words []models.Word) error
	WordCount(ctx context.Context, transcriptID string) (int, error)
}

// Coordinator turns chunk arrivals into word growth for one session.
//
// Every recognition request carries the full cumulative snapshot, so every
// response re-reports all earlier words. The coordinator keeps a word
// offset, appends only the response's tail past it, and allows at most one
// outstanding request. Chunks arriving while a request is in flight are
// already in the buffer; the next arrival after the guard clears picks
// them up.
type Coordinator struct {
	transcriptID string
	ownerID      string

	buf  *ChunkBuffer
	rec  recognizer.Recognizer
	sink WordSink
	pub  *events.Publisher
	met  *metrics.Metrics
	log  zerolog.Logger

	minSnapshotBytes int
	mimeType         string
	language         string
	punctuate        bool

	mu         sync.Mutex
	inFlight   bool
	wordOffset int
	invalid    bool

	wg sync.WaitGroup
}

// CoordinatorConfig wires a coordinator for one session.
type CoordinatorConfig struct {
	TranscriptID     string
	OwnerID          string
	Buffer           *ChunkBuffer
	Recognizer       recognizer.Recognizer
	Sink             WordSink
	Publisher        *events.Publisher
	Metrics          *metrics.Metrics
	Logger           zerolog.Logger
	MinSnapshotBytes int
	MimeType         string
	Language         string
	Punctuate        bool
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	met := cfg.Metrics
	if met == nil {
		met = metrics.DefaultMetrics
	}
	return &Coordinator{
		transcriptID:     cfg.TranscriptID,
		ownerID:          cfg.OwnerID,
		buf:              cfg.Buffer,
		rec:              cfg.Recognizer,
		sink:             cfg.Sink,
		pub:              cfg.Publisher,
		met:              met,
		log:              cfg.Logger,
		minSnapshotBytes: cfg.MinSnapshotBytes,
		mimeType:         cfg.MimeType,
		language:         cfg.Language,
		punctuate:        cfg.Punctuate,
	}
}

// WordOffset returns the count of words reconciled so far.
func (c *Coordinator) WordOffset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wordOffset
}

// Invalidate marks the session gone. A response that resolves afterwards is
// dropped instead of written to a deleted transcript.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	c.invalid = true
	c.mu.Unlock()
}

// OnChunk is called after each chunk lands in the buffer. If a request is
// already outstanding it does nothing; the buffered chunk rides along with
// the next request. Otherwise it takes a snapshot and issues one request
// asynchronously.
func (c *Coordinator) OnChunk(ctx context.Context) {
	c.mu.Lock()
	if c.inFlight || c.invalid {
		c.mu.Unlock()
		return
	}
	snapshot := c.buf.Snapshot()
	if len(snapshot) < c.minSnapshotBytes {
		// Not enough audio to be decodable yet; wait for more data.
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.recognize(ctx, snapshot)
}

// Wait blocks until no request is outstanding. Stop uses it so the last
// snapshot's words land before the transcript is completed.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) recognize(ctx context.Context, snapshot []byte) {
	defer c.wg.Done()

	start := time.Now()
	res, err := c.rec.Recognize(ctx, recognizer.Request{
		Audio:       snapshot,
		ContentType: c.mimeType,
		Language:    c.language,
		Punctuate:   c.punctuate,
	})
	c.met.RecordRecognition(c.rec.Provider(), "streaming", len(snapshot), err, time.Since(start).Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		// Best effort: keep the offset, keep recording; the next chunk
		// retries over a longer snapshot.
		c.log.Warn().Err(err).
			Int("snapshot_bytes", len(snapshot)).
			Int("word_offset", c.wordOffset).
			Msg("recognition request failed, will retry on next chunk")
		return
	}
	if c.invalid {
		c.log.Debug().Msg("dropping recognition result for discarded session")
		return
	}

	if res.TotalWords <= c.wordOffset {
		return
	}
	if c.wordOffset > len(res.Words) {
		c.log.Warn().
			Int("word_offset", c.wordOffset).
			Int("response_words", len(res.Words)).
			Msg("recognition response shorter than reconciled offset, ignoring")
		return
	}
	fresh := res.Words[c.wordOffset:]

	if err := c.sink.AppendWords(ctx, c.transcriptID, fresh); err != nil {
		// Offset stays put so the same tail is retried with the next
		// response.
		c.log.Error().Err(err).Int("words", len(fresh)).Msg("failed to append words")
		return
	}
	c.wordOffset = res.TotalWords
	c.met.RecordWordsAppended(len(fresh))

	c.log.Debug().
		Int("new_words", len(fresh)).
		Int("total_words", c.wordOffset).
		Msg("reconciled recognition response")

	if c.pub != nil {
		_ = c.pub.PublishWords(ctx, c.transcriptID, models.WordsAppended{
			EventType:    "transcript.words.appended",
			TranscriptID: c.transcriptID,
			OwnerID:      c.ownerID,
			Timestamp:    time.Now().UnixMilli(),
			WordCount:    len(fresh),
			TotalWords:   c.wordOffset,
		})
	}
}
