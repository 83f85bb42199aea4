package session

import (
	"errors"
	"fmt"
	"strings"
)

// Upload validation errors. These are rejected before any network call.
var (
	ErrUploadTooLarge       = errors.New("session: uploaded file too large")
	ErrUploadTooSmall       = errors.New("session: uploaded file too small")
	ErrUploadUnsupportedFmt = errors.New("session: unsupported audio format")
)

// acceptedUploadTypes are the container formats the batch path transcribes.
var acceptedUploadTypes = []string{
	"audio/webm",
	"audio/ogg",
	"audio/wav",
	"audio/x-wav",
	"audio/flac",
	"audio/mpeg",
	"audio/mp3",
	"audio/mp4",
	"audio/m4a",
	"audio/x-m4a",
}

// UploadLimits bounds accepted batch uploads.
type UploadLimits struct {
	MinBytes int64
	MaxBytes int64
}

// ValidateUpload checks size and content type before any transcription
// work happens. Codec parameters on the content type are ignored.
func ValidateUpload(size int64, contentType string, limits UploadLimits) error {
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrUploadTooLarge, size, limits.MaxBytes)
	}
	if size < limits.MinBytes {
		return fmt.Errorf("%w: %d bytes (min %d)", ErrUploadTooSmall, size, limits.MinBytes)
	}

	base := contentType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	for _, t := range acceptedUploadTypes {
		if base == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUploadUnsupportedFmt, contentType)
}
