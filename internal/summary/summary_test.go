package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/models"
)

type fakeStore struct {
	words  []models.Word
	labels []models.SpeakerLabel
	saved  *models.Summary
}

func (f *fakeStore) Words(ctx context.Context, id string) ([]models.Word, error) {
	return f.words, nil
}

func (f *fakeStore) SpeakerLabels(ctx context.Context, id string) ([]models.SpeakerLabel, error) {
	return f.labels, nil
}

func (f *fakeStore) SaveSummary(ctx context.Context, s models.Summary) error {
	f.saved = &s
	return nil
}

func completionHandler(t *testing.T, content string, gotPrompt *string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		for _, m := range body.Messages {
			if m.Role == "user" {
				*gotPrompt = m.Content
			}
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestSummarize(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(completionHandler(t,
		`{"overview": "Two people planned a release.", "keyPoints": ["ship friday"], "actionItems": [{"text": "update changelog", "assignee": "bob"}]}`,
		&gotPrompt))
	defer srv.Close()

	store := &fakeStore{
		words: []models.Word{
			{Text: "let's", Speaker: 0, StartTime: 0.0},
			{Text: "ship", Speaker: 0, StartTime: 0.4},
			{Text: "okay", Speaker: 1, StartTime: 1.0},
		},
		labels: []models.SpeakerLabel{{SpeakerNumber: 1, Label: "Bob"}},
	}
	s, err := New("test-key", "gpt-4o-mini", store, zerolog.Nop(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := s.Summarize(context.Background(), "tr-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Overview != "Two people planned a release." {
		t.Errorf("overview = %q", sum.Overview)
	}
	if len(sum.KeyPoints) != 1 || len(sum.ActionItems) != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ActionItems[0].Assignee != "bob" {
		t.Errorf("assignee = %q", sum.ActionItems[0].Assignee)
	}
	if store.saved == nil {
		t.Fatal("summary not persisted")
	}

	// The prompt is the segmented transcript with speaker labels applied.
	if !strings.Contains(gotPrompt, "Speaker 1: let's ship") || !strings.Contains(gotPrompt, "Bob: okay") {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	s, err := New("test-key", "", &fakeStore{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Summarize(context.Background(), "tr-1"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o-mini", &fakeStore{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestParseResponse(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain json", `{"overview": "ok", "keyPoints": [], "actionItems": []}`, false},
		{"fenced json", "```json\n{\"overview\": \"ok\"}\n```", false},
		{"fenced no lang", "```\n{\"overview\": \"ok\"}\n```", false},
		{"missing overview", `{"keyPoints": ["a"]}`, true},
		{"not json", "here is your summary!", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := parseResponse(c.in)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if got.Overview == "" {
				t.Error("empty overview")
			}
		})
	}
}
