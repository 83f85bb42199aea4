// Package summary generates AI summaries of finished transcripts.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/segmenter"
)

const systemPrompt = `You summarize meeting and voice note transcripts.
Respond with JSON only, using this exact shape:
{"overview": "...", "keyPoints": ["..."], "actionItems": [{"text": "...", "assignee": "..."}]}
Keep the overview to at most three sentences. Leave assignee empty when no
person is named for a task. Do not invent content absent from the transcript.`

// Store is the persistence slice the summarizer needs.
type Store interface {
	Words(ctx context.Context, transcriptID string) ([]models.Word, error)
	SpeakerLabels(ctx context.Context, transcriptID string) ([]models.SpeakerLabel, error)
	SaveSummary(ctx context.Context, s models.Summary) error
}

// Summarizer produces and persists one summary per transcript.
type Summarizer struct {
	client oai.Client
	model  string
	store  Store
	log    zerolog.Logger
}

// Option configures the Summarizer.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at a different API host, used in tests.
func WithBaseURL(url string) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithBaseURL(url))
	}
}

func New(apiKey, model string, store Store, log zerolog.Logger, opts ...Option) (*Summarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("summary: api key must not be empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &Summarizer{
		client: oai.NewClient(reqOpts...),
		model:  model,
		store:  store,
		log:    log,
	}, nil
}

type response struct {
	Overview    string              `json:"overview"`
	KeyPoints   []string            `json:"keyPoints"`
	ActionItems []models.ActionItem `json:"actionItems"`
}

// Summarize formats the transcript as speaker lines, asks the model for a
// structured summary, and persists it.
func (s *Summarizer) Summarize(ctx context.Context, transcriptID string) (models.Summary, error) {
	words, err := s.store.Words(ctx, transcriptID)
	if err != nil {
		return models.Summary{}, err
	}
	if len(words) == 0 {
		return models.Summary{}, fmt.Errorf("summary: transcript %s has no words", transcriptID)
	}
	labels, err := s.store.SpeakerLabels(ctx, transcriptID)
	if err != nil {
		return models.Summary{}, err
	}

	lines := segmenter.Lines(segmenter.Segment(words), labels)
	transcript := strings.Join(lines, "\n")

	resp, err := s.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(transcript),
		},
		Temperature: param.NewOpt(0.2),
	})
	if err != nil {
		return models.Summary{}, fmt.Errorf("summary: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Summary{}, fmt.Errorf("summary: empty choices in response")
	}

	parsed, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return models.Summary{}, err
	}

	sum := models.Summary{
		TranscriptID: transcriptID,
		Overview:     parsed.Overview,
		KeyPoints:    parsed.KeyPoints,
		ActionItems:  parsed.ActionItems,
		Model:        s.model,
		GeneratedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveSummary(ctx, sum); err != nil {
		return models.Summary{}, err
	}

	s.log.Info().
		Str("transcript_id", transcriptID).
		Int("key_points", len(sum.KeyPoints)).
		Int("action_items", len(sum.ActionItems)).
		Msg("summary generated")
	return sum, nil
}

// parseResponse extracts the JSON body, tolerating a markdown code fence
// around it.
func parseResponse(content string) (response, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var parsed response
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return response{}, fmt.Errorf("summary: malformed model response: %w", err)
	}
	if parsed.Overview == "" {
		return response{}, fmt.Errorf("summary: model response missing overview")
	}
	return parsed, nil
}
