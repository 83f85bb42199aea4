package session

import (
	"context"
	"errors"
)

// Device acquisition failures are distinguished so the caller can surface
// cause-specific text: a denied permission is actionable by the user, a
// hardware failure is not.
var (
	ErrPermissionDenied = errors.New("session: capture permission denied")
	ErrDeviceFailure    = errors.New("session: capture device failure")
)

// CaptureDevice is the audio source owned exclusively by one active
// session. It must be released on every exit path so a microphone is never
// left open.
type CaptureDevice interface {
	// Acquire claims the device. Returns ErrPermissionDenied or
	// ErrDeviceFailure on failure; the session stays Idle in both cases.
	Acquire(ctx context.Context) error

	// Supports reports whether the device can emit the given container/codec.
	Supports(mimeType string) bool

	// DefaultMimeType is the device's own format, used when nothing in the
	// preference list is supported.
	DefaultMimeType() string

	// Release frees the device. Idempotent.
	Release()
}

// RemoteDevice represents a capture device living on the client side of the
// HTTP API: the caller records and posts chunks, so acquisition always
// succeeds and all listed formats are accepted as-is.
type RemoteDevice struct{}

func (RemoteDevice) Acquire(ctx context.Context) error { return nil }
func (RemoteDevice) Supports(mimeType string) bool     { return true }
func (RemoteDevice) DefaultMimeType() string           { return "audio/webm;codecs=opus" }
func (RemoteDevice) Release()                          {}
