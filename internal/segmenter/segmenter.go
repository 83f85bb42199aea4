// Package segmenter turns a flat word stream into ordered speaker segments.
//
// Segmentation is a pure function over the word list so live display,
// finalized display, export and summarization all see identical structure.
package segmenter

import (
	"fmt"
	"strings"

	"voicenote-transcriber/internal/models"
)

// Segment groups consecutive same-speaker words into maximal runs. A new
// segment starts at every speaker change, including the very first word.
// An empty word list yields an empty segment list.
func Segment(words []models.Word) []models.SpeakerSegment {
	if len(words) == 0 {
		return nil
	}

	var segments []models.SpeakerSegment
	var texts []string
	cur := models.SpeakerSegment{SpeakerNumber: words[0].Speaker, StartTime: words[0].StartTime}

	flush := func() {
		cur.Text = strings.Join(texts, " ")
		segments = append(segments, cur)
	}

	for _, w := range words {
		if w.Speaker != cur.SpeakerNumber {
			flush()
			cur = models.SpeakerSegment{SpeakerNumber: w.Speaker, StartTime: w.StartTime}
			texts = texts[:0]
		}
		texts = append(texts, w.Text)
	}
	flush()
	return segments
}

// Lines renders segments one per line as "<label>: <text>", resolving
// speaker numbers through custom labels when present and falling back to
// "Speaker N" (1-based for display) otherwise.
func Lines(segments []models.SpeakerSegment, labels []models.SpeakerLabel) []string {
	byNumber := make(map[int]string, len(labels))
	for _, l := range labels {
		byNumber[l.SpeakerNumber] = l.Label
	}

	out := make([]string, len(segments))
	for i, seg := range segments {
		label, ok := byNumber[seg.SpeakerNumber]
		if !ok {
			label = fmt.Sprintf("Speaker %d", seg.SpeakerNumber+1)
		}
		out[i] = label + ": " + seg.Text
	}
	return out
}
