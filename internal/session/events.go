package session

import (
	"time"

	"github.com/alnah/scribestream/internal/transcript"
)

// EventType identifies one lifecycle event in the downstream protocol.
type EventType string

const (
	EventStart         EventType = "start"
	EventInfo          EventType = "info"
	EventChunksCreated EventType = "chunks-created"
	EventChunkStart    EventType = "chunk-start"
	EventChunkComplete EventType = "chunk-complete"
	EventChunkError    EventType = "chunk-error"
	EventWaiting       EventType = "waiting"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is one typed, JSON-serializable lifecycle event. Events are emitted
// in causal order; chunk-complete order equals chunk index order.
type Event struct {
	Type EventType
	Data any
}

// Sink delivers events to the consumer. A non-nil error from Send means the
// consumer is gone; the orchestrator treats it as a cancellation signal and
// stops emitting.
type Sink interface {
	Send(ev Event) error
}

// StartPayload announces the session and its duration estimate.
type StartPayload struct {
	FileName          string  `json:"fileName"`
	FileSize          int64   `json:"fileSize"`
	EstimatedDuration float64 `json:"estimatedDuration"`
}

// InfoPayload carries a free-form progress note.
type InfoPayload struct {
	Message string `json:"message"`
}

// ChunksCreatedPayload reports the realized chunk plan.
type ChunksCreatedPayload struct {
	TotalChunks   int     `json:"totalChunks"`
	ChunkDuration float64 `json:"chunkDuration"`
}

// ChunkStartPayload marks the beginning of one chunk's transcription.
type ChunkStartPayload struct {
	ChunkIndex  int     `json:"chunkIndex"`
	TotalChunks int     `json:"totalChunks"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
}

// Chunk outcome events reuse the result record; it serializes as
// {chunkIndex, startTime, endTime, text, status}.

// WaitingPayload announces the inter-chunk throttling pause.
type WaitingPayload struct {
	Message  string  `json:"message"`
	WaitTime float64 `json:"waitTime"`
}

// CompletePayload is the terminal success event with the full document.
type CompletePayload struct {
	Text              string                   `json:"text"`
	FileName          string                   `json:"fileName"`
	FileSize          int64                    `json:"fileSize"`
	EstimatedDuration float64                  `json:"estimatedDuration"`
	ProcessingTime    string                   `json:"processingTime"`
	ProcessingTimeMs  int64                    `json:"processingTimeMs"`
	Timestamp         string                   `json:"timestamp"`
	AllChunkResults   []transcript.ChunkResult `json:"allChunkResults"`
}

// ErrorPayload is the terminal failure event.
type ErrorPayload struct {
	Error string `json:"error"`
}

func completePayload(doc *transcript.Document) CompletePayload {
	return CompletePayload{
		Text:              doc.Text,
		FileName:          doc.FileName,
		FileSize:          doc.FileSize,
		EstimatedDuration: doc.EstimatedDuration.Seconds(),
		ProcessingTime:    doc.ProcessingTime.Round(time.Millisecond).String(),
		ProcessingTimeMs:  doc.ProcessingTime.Milliseconds(),
		Timestamp:         doc.Timestamp.Format(time.RFC3339),
		AllChunkResults:   doc.Results,
	}
}
