// Package recognizer defines the interface for speech-to-text providers.
//
// Providers receive the full cumulative audio snapshot on every call and must
// return the complete recognized word list for it, not a delta. The caller
// slices off the words it has already stored; see the coordinator in the
// session package.
package recognizer

import (
	"context"

	"voicenote-transcriber/internal/models"
)

// Request carries one recognition call over a cumulative audio snapshot.
type Request struct {
	// Audio is the complete audio buffer from the start of the session.
	// Payloads past the first chunk are not independently decodable, so a
	// request always carries the whole accumulated buffer.
	Audio       []byte
	ContentType string
	Language    string
	Punctuate   bool
}

// Result is the complete recognition output for a snapshot.
type Result struct {
	// Words is the full word list for the snapshot, in temporal order,
	// including words returned by earlier calls over shorter snapshots.
	Words []models.Word

	// TotalWords equals len(Words); kept explicit because it becomes the
	// caller's next word offset.
	TotalWords int

	// MediaDurationSeconds is the audio duration as reported by the
	// provider, used as the transcript duration on the batch path.
	MediaDurationSeconds float64
}

// Recognizer is a batch speech-to-text provider (Deepgram, Google, mock).
// Implementations must tolerate receiving the same growing buffer repeatedly
// and return consistent results for already-seen bytes.
type Recognizer interface {
	Recognize(ctx context.Context, req Request) (Result, error)

	// Provider returns a short provider name for logs and metrics.
	Provider() string
}
