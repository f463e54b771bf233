package api

import "github.com/airenas/rhemaflow/internal/pkg/persistence"

const (
	// PrmFile multipart field with the media file
	PrmFile = "audio"
	// PrmTitle optional title
	PrmTitle = "title"
	// PrmSpeaker optional speaker
	PrmSpeaker = "speaker"
	// PrmTags optional comma separated tags
	PrmTags = "tags"
)

// Metadata is user supplied info for an upload
type Metadata struct {
	Title   string
	Speaker string
	Tags    string
}

// LiveResult is the root endpoint response
type LiveResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TranscribeResult is the transcribe endpoint response
type TranscribeResult struct {
	ID         string                  `json:"id"`
	Message    string                  `json:"message"`
	Transcript *persistence.Transcript `json:"transcript"`
}

// QuotesResult is the quote extraction response
type QuotesResult struct {
	Quotes []persistence.Quote `json:"quotes"`
}

// MessageResult keeps a simple message
type MessageResult struct {
	Message string `json:"message"`
}

// ErrorResult is returned on any failure
type ErrorResult struct {
	Error string `json:"error"`
}
