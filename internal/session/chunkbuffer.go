package session

import "sync"

// ChunkBuffer accumulates raw audio chunks for one session in arrival order.
//
// The container format repeats its global headers only at the start of the
// byte stream, so a single chunk past the first is not decodable on its own.
// Snapshot therefore always returns the full concatenation from byte zero.
type ChunkBuffer struct {
	mu       sync.Mutex
	chunks   [][]byte
	total    int
	minBytes int
}

// NewChunkBuffer returns a buffer that silently drops chunks smaller than
// minBytes, which indicate a corrupt or empty capture tick.
func NewChunkBuffer(minBytes int) *ChunkBuffer {
	return &ChunkBuffer{minBytes: minBytes}
}

// Append adds a chunk. It reports whether the chunk was kept; undersized
// chunks are dropped without error.
func (b *ChunkBuffer) Append(chunk []byte) bool {
	if len(chunk) < b.minBytes {
		return false
	}
	// Chunks are immutable after append; copy so the caller can reuse
	// its slice.
	own := make([]byte, len(chunk))
	copy(own, chunk)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, own)
	b.total += len(own)
	return true
}

// Snapshot returns a fresh concatenation of all chunks in arrival order.
// Repeated calls while the session is active return a growing, never
// shrinking, buffer.
func (b *ChunkBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.total)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// Len returns the number of kept chunks.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Size returns the total byte size of all kept chunks.
func (b *ChunkBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Clear drops all chunks in one step. Only discard uses this; individual
// chunks are never removed.
func (b *ChunkBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.total = 0
}
