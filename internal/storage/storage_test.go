package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestDirUploadAndOpen(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	ref, err := d.Upload(context.Background(), "session.webm", "audio/webm", strings.NewReader("webm-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasSuffix(ref, ".webm") {
		t.Errorf("ref = %q, want .webm suffix", ref)
	}

	rc, err := d.Open(ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "webm-bytes" {
		t.Errorf("content = %q", got)
	}
}

func TestDirURL(t *testing.T) {
	d, _ := NewDir(t.TempDir())
	ref, _ := d.Upload(context.Background(), "a", "audio/webm", strings.NewReader("x"))

	u, err := d.URL(context.Background(), ref)
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if !strings.HasPrefix(u, "file://") {
		t.Errorf("url = %q", u)
	}

	if _, err := d.URL(context.Background(), "missing.webm"); err == nil {
		t.Error("expected error for unknown ref")
	}
}

func TestDirRefsAreUnique(t *testing.T) {
	d, _ := NewDir(t.TempDir())
	ctx := context.Background()

	a, _ := d.Upload(ctx, "same.webm", "audio/webm", strings.NewReader("one"))
	b, _ := d.Upload(ctx, "same.webm", "audio/webm", strings.NewReader("two"))
	if a == b {
		t.Errorf("refs collide: %q", a)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := []struct {
		contentType, name, want string
	}{
		{"audio/webm;codecs=opus", "x", ".webm"},
		{"audio/ogg", "x", ".ogg"},
		{"audio/wav", "x", ".wav"},
		{"audio/mpeg", "x", ".mp3"},
		{"application/octet-stream", "clip.flac", ".flac"},
		{"application/octet-stream", "blob", ".bin"},
	}
	for _, c := range cases {
		if got := extensionFor(c.contentType, c.name); got != c.want {
			t.Errorf("extensionFor(%q, %q) = %q, want %q", c.contentType, c.name, got, c.want)
		}
	}
}
