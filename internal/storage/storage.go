// Package storage abstracts where finalized recording audio ends up.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists finalized audio blobs and resolves references back to
// a retrievable location.
type BlobStore interface {
	// Upload stores the blob and returns an opaque storage reference.
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	// URL resolves a storage reference to a fetchable location.
	URL(ctx context.Context, ref string) (string, error)
}

// Dir stores blobs as files under a local directory. Used for development
// and as the safety fallback when no remote backend is configured.
type Dir struct {
	root string
}

// NewDir creates the directory if needed and returns a store rooted at it.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	ref := uuid.NewString() + extensionFor(contentType, name)
	path := filepath.Join(d.root, ref)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close blob: %w", err)
	}
	return ref, nil
}

func (d *Dir) URL(ctx context.Context, ref string) (string, error) {
	path := filepath.Join(d.root, filepath.Base(ref))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("resolve blob %q: %w", ref, err)
	}
	return "file://" + path, nil
}

// Open returns a reader for a stored blob. Only the local backend supports
// direct reads; remote backends hand out URLs instead.
func (d *Dir) Open(ref string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.root, filepath.Base(ref)))
}

func extensionFor(contentType, name string) string {
	switch {
	case strings.Contains(contentType, "webm"):
		return ".webm"
	case strings.Contains(contentType, "ogg"):
		return ".ogg"
	case strings.Contains(contentType, "wav"):
		return ".wav"
	case strings.Contains(contentType, "flac"):
		return ".flac"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return ".mp3"
	}
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	return ".bin"
}
