// Package supabase stores finalized recordings in a Supabase Storage bucket.
package supabase

import (
	"context"
	"fmt"
	"io"
	"path"

	storage_go "github.com/supabase-community/storage-go"

	"voicenote-transcriber/internal/storage"
)

// Store uploads recording blobs to a single Supabase bucket.
type Store struct {
	client *storage_go.Client
	bucket string
	prefix string
}

var _ storage.BlobStore = (*Store)(nil)

// New builds a bucket-backed store. projectURL is the Supabase storage
// endpoint (https://<project>.supabase.co/storage/v1), serviceKey the
// service-role key.
func New(projectURL, serviceKey, bucket string) (*Store, error) {
	if projectURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase: url and service key are required")
	}
	if bucket == "" {
		bucket = "recordings"
	}
	return &Store{
		client: storage_go.NewClient(projectURL, serviceKey, nil),
		bucket: bucket,
		prefix: "recordings",
	}, nil
}

func (s *Store) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	ref := path.Join(s.prefix, name)
	_, err := s.client.UploadFile(s.bucket, ref, r, storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("supabase upload %q: %w", ref, err)
	}
	return ref, nil
}

func (s *Store) URL(ctx context.Context, ref string) (string, error) {
	resp := s.client.GetPublicUrl(s.bucket, ref)
	if resp.SignedURL == "" {
		return "", fmt.Errorf("supabase: no public url for %q", ref)
	}
	return resp.SignedURL, nil
}
