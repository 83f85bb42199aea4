package models

// WordsAppended is published whenever reconciliation appends new words
// to a transcript.
type WordsAppended struct {
	EventType    string `json:"eventType"`
	TranscriptID string `json:"transcriptId"`
	OwnerID      string `json:"ownerId"`
	Timestamp    int64  `json:"timestamp"`
	WordCount    int    `json:"wordCount"`
	TotalWords   int    `json:"totalWords"`
}

// StatusChanged is published on every transcript status transition.
type StatusChanged struct {
	EventType    string `json:"eventType"`
	TranscriptID string `json:"transcriptId"`
	OwnerID      string `json:"ownerId"`
	Timestamp    int64  `json:"timestamp"`
	Status       Status `json:"status"`
	Duration     int    `json:"duration,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
