package segmenter

import (
	"reflect"
	"testing"

	"voicenote-transcriber/internal/models"
)

func TestSegmentSplitsOnSpeakerChange(t *testing.T) {
	words := []models.Word{
		{Text: "a", Speaker: 0, StartTime: 0.0},
		{Text: "b", Speaker: 0, StartTime: 0.5},
		{Text: "c", Speaker: 1, StartTime: 1.0},
	}

	got := Segment(words)
	want := []models.SpeakerSegment{
		{SpeakerNumber: 0, StartTime: 0.0, Text: "a b"},
		{SpeakerNumber: 1, StartTime: 1.0, Text: "c"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segment() = %+v, want %+v", got, want)
	}
}

func TestSegmentEmpty(t *testing.T) {
	if got := Segment(nil); len(got) != 0 {
		t.Errorf("Segment(nil) = %+v, want empty", got)
	}
	if got := Segment([]models.Word{}); len(got) != 0 {
		t.Errorf("Segment(empty) = %+v, want empty", got)
	}
}

func TestSegmentSingleSpeaker(t *testing.T) {
	words := []models.Word{
		{Text: "one", Speaker: 2, StartTime: 0.1},
		{Text: "two", Speaker: 2, StartTime: 0.6},
	}
	got := Segment(words)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Text != "one two" || got[0].SpeakerNumber != 2 || got[0].StartTime != 0.1 {
		t.Errorf("got %+v", got[0])
	}
}

func TestSegmentAlternatingSpeakers(t *testing.T) {
	words := []models.Word{
		{Text: "a", Speaker: 0},
		{Text: "b", Speaker: 1},
		{Text: "c", Speaker: 0},
	}
	got := Segment(words)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestSegmentIdempotent(t *testing.T) {
	words := []models.Word{
		{Text: "a", Speaker: 0, StartTime: 0.0},
		{Text: "b", Speaker: 1, StartTime: 0.5},
		{Text: "c", Speaker: 1, StartTime: 1.0},
	}
	first := Segment(words)
	second := Segment(words)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Segment not idempotent: %+v vs %+v", first, second)
	}
}

func TestLines(t *testing.T) {
	segments := []models.SpeakerSegment{
		{SpeakerNumber: 0, Text: "hello there"},
		{SpeakerNumber: 1, Text: "hi"},
	}
	labels := []models.SpeakerLabel{
		{SpeakerNumber: 1, Label: "Alice"},
	}

	got := Lines(segments, labels)
	want := []string{"Speaker 1: hello there", "Alice: hi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}

func TestLinesNoLabels(t *testing.T) {
	got := Lines([]models.SpeakerSegment{{SpeakerNumber: 3, Text: "x"}}, nil)
	if got[0] != "Speaker 4: x" {
		t.Errorf("got %q", got[0])
	}
}
