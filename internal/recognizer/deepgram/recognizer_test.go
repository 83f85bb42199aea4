package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicenote-transcriber/internal/recognizer"
)

const sampleResponse = `{
	"metadata": {"duration": 12.5},
	"results": {"channels": [{"alternatives": [{
		"words": [
			{"word": "hello", "punctuated_word": "Hello,", "start": 0.1, "end": 0.4, "speaker": 0},
			{"word": "world", "punctuated_word": "world.", "start": 0.5, "end": 0.9, "speaker": 1}
		]
	}]}]}
}`

func TestRecognize(t *testing.T) {
	var gotContentType, gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	rec := New("test-key", "nova-2", WithBaseURL(srv.URL))

	res, err := rec.Recognize(context.Background(), recognizer.Request{
		Audio:       []byte("fake audio"),
		ContentType: "audio/webm;codecs=opus",
		Language:    "en",
		Punctuate:   true,
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if gotContentType != "audio/webm" {
		t.Errorf("expected codec params stripped, got content type %q", gotContentType)
	}
	if gotAuth != "Token test-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	for _, want := range []string{"model=nova-2", "diarize=true", "punctuate=true", "language=en"} {
		if !containsParam(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	if res.TotalWords != 2 {
		t.Fatalf("expected 2 words, got %d", res.TotalWords)
	}
	if res.Words[0].Text != "Hello," {
		t.Errorf("expected punctuated word 'Hello,', got %q", res.Words[0].Text)
	}
	if res.Words[1].Speaker != 1 {
		t.Errorf("expected speaker 1, got %d", res.Words[1].Speaker)
	}
	if res.MediaDurationSeconds != 12.5 {
		t.Errorf("expected duration 12.5, got %f", res.MediaDurationSeconds)
	}
	if !res.Words[0].IsFinal {
		t.Error("expected words to be marked final")
	}
}

func TestRecognize_RawWordWithoutPunctuate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	rec := New("test-key", "nova-2", WithBaseURL(srv.URL))

	res, err := rec.Recognize(context.Background(), recognizer.Request{
		Audio:       []byte("fake audio"),
		ContentType: "audio/webm",
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Words[0].Text != "hello" {
		t.Errorf("expected raw word 'hello', got %q", res.Words[0].Text)
	}
}

func TestRecognize_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	rec := New("test-key", "nova-2", WithBaseURL(srv.URL))

	_, err := rec.Recognize(context.Background(), recognizer.Request{Audio: []byte("x")})
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestRecognize_NoAPIKey(t *testing.T) {
	rec := New("", "nova-2")
	_, err := rec.Recognize(context.Background(), recognizer.Request{Audio: []byte("x")})
	if err == nil {
		t.Fatal("expected error with empty API key")
	}
}

func TestStripCodecParams(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"audio/webm;codecs=opus", "audio/webm"},
		{"audio/webm", "audio/webm"},
		{"audio/ogg; codecs=opus", "audio/ogg"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripCodecParams(tt.in); got != tt.want {
			t.Errorf("stripCodecParams(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func containsParam(query, param string) bool {
	for _, p := range splitQuery(query) {
		if p == param {
			return true
		}
	}
	return false
}

func splitQuery(q string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(q); i++ {
		if i == len(q) || q[i] == '&' {
			out = append(out, q[start:i])
			start = i + 1
		}
	}
	return out
}
