// Package deepgram provides a Deepgram pre-recorded transcription recognizer.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/recognizer"
)

const defaultBaseURL = "https://api.deepgram.com/v1/listen"

// Recognizer implements recognizer.Recognizer against the Deepgram listen API.
type Recognizer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Option customizes the recognizer.
type Option func(*Recognizer)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(r *Recognizer) { r.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Recognizer) { r.client = c }
}

// New creates a Deepgram recognizer.
func New(apiKey, model string, opts ...Option) *Recognizer {
	r := &Recognizer{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Provider returns the provider name.
func (r *Recognizer) Provider() string { return "deepgram" }

// response mirrors the subset of the Deepgram listen response the pipeline
// needs.
type response struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Words []struct {
					Word           string  `json:"word"`
					PunctuatedWord string  `json:"punctuated_word"`
					Start          float64 `json:"start"`
					End            float64 `json:"end"`
					Speaker        *int    `json:"speaker"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Recognize posts the cumulative snapshot and returns the full word list.
func (r *Recognizer) Recognize(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
	if r.apiKey == "" {
		return recognizer.Result{}, fmt.Errorf("deepgram: API key not configured")
	}

	q := url.Values{}
	q.Set("model", r.model)
	q.Set("diarize", "true")
	q.Set("smart_format", "true")
	q.Set("punctuate", fmt.Sprintf("%t", req.Punctuate))
	if req.Language != "" {
		q.Set("language", req.Language)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"?"+q.Encode(), bytes.NewReader(req.Audio))
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("deepgram: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+r.apiKey)
	// Deepgram auto-detects the container but may reject a full MIME type
	// with codec parameters, so send only the bare type.
	httpReq.Header.Set("Content-Type", stripCodecParams(req.ContentType))

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("deepgram: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return recognizer.Result{}, fmt.Errorf("deepgram: http %d: %s", resp.StatusCode, string(body))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return recognizer.Result{}, fmt.Errorf("deepgram: decode response: %w", err)
	}

	result := recognizer.Result{MediaDurationSeconds: parsed.Metadata.Duration}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return result, nil
	}

	raw := parsed.Results.Channels[0].Alternatives[0].Words
	result.Words = make([]models.Word, 0, len(raw))
	for _, w := range raw {
		text := w.Word
		if req.Punctuate && w.PunctuatedWord != "" {
			text = w.PunctuatedWord
		}
		speaker := 0
		if w.Speaker != nil {
			speaker = *w.Speaker
		}
		result.Words = append(result.Words, models.Word{
			Text:      text,
			Speaker:   speaker,
			StartTime: w.Start,
			EndTime:   w.End,
			IsFinal:   true,
		})
	}
	result.TotalWords = len(result.Words)
	return result, nil
}

// stripCodecParams reduces "audio/webm;codecs=opus" to "audio/webm".
func stripCodecParams(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}
