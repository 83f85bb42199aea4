// Package google provides a Google Cloud Speech-to-Text batch recognizer.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"voicenote-transcriber/internal/models"
	"voicenote-transcriber/internal/recognizer"
)

// Recognizer implements recognizer.Recognizer using Google Cloud
// Speech-to-Text synchronous recognition. Every call re-recognizes the whole
// snapshot, which matches the cumulative-buffer protocol.
type Recognizer struct {
	client       *speech.Client
	sampleRateHz int
}

// New creates a new Google recognizer.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, sampleRateHz int) (*Recognizer, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google: create speech client: %w", err)
	}
	return &Recognizer{client: c, sampleRateHz: sampleRateHz}, nil
}

// Provider returns the provider name.
func (r *Recognizer) Provider() string { return "google" }

// Close releases the underlying client.
func (r *Recognizer) Close() error {
	return r.client.Close()
}

// Recognize runs synchronous recognition over the full snapshot with word
// time offsets and speaker diarization enabled.
func (r *Recognizer) Recognize(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
	resp, err := r.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingFor(req.ContentType),
			SampleRateHertz:            int32(r.sampleRateHz),
			LanguageCode:               languageCode(req.Language),
			EnableWordTimeOffsets:      true,
			EnableAutomaticPunctuation: req.Punctuate,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("google: recognize: %w", err)
	}

	if len(resp.Results) == 0 {
		return recognizer.Result{}, nil
	}

	// With diarization enabled the last result carries the complete word
	// list for the request, each word tagged with a speaker.
	last := resp.Results[len(resp.Results)-1]
	if len(last.Alternatives) == 0 {
		return recognizer.Result{}, nil
	}

	raw := last.Alternatives[0].Words
	words := make([]models.Word, 0, len(raw))
	var endSeconds float64
	for _, w := range raw {
		speaker := int(w.SpeakerTag) - 1
		if speaker < 0 {
			speaker = 0
		}
		end := w.GetEndTime().AsDuration().Seconds()
		if end > endSeconds {
			endSeconds = end
		}
		words = append(words, models.Word{
			Text:      w.Word,
			Speaker:   speaker,
			StartTime: w.GetStartTime().AsDuration().Seconds(),
			EndTime:   end,
			IsFinal:   true,
		})
	}

	return recognizer.Result{
		Words:                words,
		TotalWords:           len(words),
		MediaDurationSeconds: endSeconds,
	}, nil
}

func encodingFor(contentType string) speechpb.RecognitionConfig_AudioEncoding {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	switch strings.TrimSpace(contentType) {
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "audio/wav", "audio/x-wav", "audio/wave":
		return speechpb.RecognitionConfig_LINEAR16
	case "audio/flac":
		return speechpb.RecognitionConfig_FLAC
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// languageCode widens bare language tags to the BCP-47 codes the API expects.
func languageCode(lang string) string {
	switch lang {
	case "", "en":
		return "en-US"
	case "de":
		return "de-DE"
	case "es":
		return "es-ES"
	case "fr":
		return "fr-FR"
	default:
		return lang
	}
}
