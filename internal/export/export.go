// Package export renders finished transcripts as downloadable plain text.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/segmenter"
)

// Params describes one export.
type Params struct {
	Title    string
	Date     string // YYYY-MM-DD
	Duration int    // whole seconds
	Words    []models.Word
	Labels   []models.SpeakerLabel
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// TXT renders the transcript as plain text and returns the content plus a
// suggested filename ("YYYY-MM-DD Title.txt").
func TXT(p Params) (content, filename string) {
	segments := segmenter.Segment(p.Words)
	labels := make(map[int]string, len(p.Labels))
	for _, l := range p.Labels {
		labels[l.SpeakerNumber] = l.Label
	}

	var b strings.Builder
	b.WriteString(p.Title + "\n")
	b.WriteString(strings.Repeat("=", len(p.Title)) + "\n\n")
	fmt.Fprintf(&b, "Date: %s\n", p.Date)
	fmt.Fprintf(&b, "Duration: %s\n", Timestamp(float64(p.Duration)))
	b.WriteString("\n" + strings.Repeat("-", 40) + "\n\n")

	for _, seg := range segments {
		label, ok := labels[seg.SpeakerNumber]
		if !ok {
			label = fmt.Sprintf("Speaker %d", seg.SpeakerNumber+1)
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", Timestamp(seg.StartTime), label, seg.Text)
	}

	safeTitle := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(p.Title, ""))
	return b.String(), fmt.Sprintf("%s %s.txt", p.Date, safeTitle)
}

// Timestamp formats seconds as M:SS, or H:MM:SS past an hour.
func Timestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
