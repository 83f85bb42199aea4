// Package models defines the data structures shared across the transcription pipeline.
package models

import "time"

// Status is the lifecycle status of a transcript record.
type Status string

const (
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Source identifies how the audio entered the system.
type Source string

const (
	SourceRecording Source = "recording"
	SourceUpload    Source = "upload"
)

// Transcript is the metadata record backing one recording or upload.
type Transcript struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	Source       Source     `json:"source"`
	Duration     int        `json:"duration,omitempty"` // seconds
	ErrorMessage string     `json:"errorMessage,omitempty"`
	FullText     string     `json:"fullText,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Word is a single recognized token. Words are append-only: the pipeline
// stores only final words and never revises them.
type Word struct {
	Text      string  `json:"text"`
	Speaker   int     `json:"speaker"`
	StartTime float64 `json:"startTime"` // seconds from session start
	EndTime   float64 `json:"endTime"`
	IsFinal   bool    `json:"isFinal"`
}

// SpeakerSegment is a maximal run of consecutive same-speaker words.
// Derived on demand from the word stream, never persisted.
type SpeakerSegment struct {
	SpeakerNumber int     `json:"speakerNumber"`
	StartTime     float64 `json:"startTime"`
	Text          string  `json:"text"`
}

// SpeakerLabel is a user-assigned display name for a speaker index.
type SpeakerLabel struct {
	TranscriptID  string `json:"transcriptId"`
	SpeakerNumber int    `json:"speakerNumber"`
	Label         string `json:"label"`
}

// RecordingArtifact describes the persisted audio blob for a transcript.
// Created once at finalize time and immutable thereafter.
type RecordingArtifact struct {
	TranscriptID string `json:"transcriptId"`
	StorageRef   string `json:"storageRef"`
	Format       string `json:"format"`
	Size         int64  `json:"size"`
}

// UserSettings holds the per-user recognition preferences consulted when
// building each recognition request.
type UserSettings struct {
	Language        string `json:"language"`
	AutoPunctuation bool   `json:"autoPunctuation"`
}

// DefaultSettings mirrors the fallback used when a user has no stored settings.
func DefaultSettings() UserSettings {
	return UserSettings{Language: "en", AutoPunctuation: true}
}

// Summary is a stored AI-generated transcript summary.
type Summary struct {
	TranscriptID string       `json:"transcriptId"`
	Overview     string       `json:"overview"`
	KeyPoints    []string     `json:"keyPoints"`
	ActionItems  []ActionItem `json:"actionItems"`
	Model        string       `json:"model"`
	GeneratedAt  time.Time    `json:"generatedAt"`
}

// ActionItem is a single task extracted by summarization.
type ActionItem struct {
	Text     string `json:"text"`
	Assignee string `json:"assignee"`
}
