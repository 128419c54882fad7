// Package transcript assembles per-chunk transcription results into the
// final document returned to the consumer.
package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of one chunk's transcription.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorPlaceholder is the text recorded for a chunk whose every attempt
// failed. It keeps the failed time range visible in the document instead of
// silently dropping it from the timeline.
const ErrorPlaceholder = "[transcription failed]"

// ChunkResult records one chunk's outcome. Results are appended exactly once
// per chunk, in index order, and the full list is retained for the session's
// lifetime.
type ChunkResult struct {
	Index  int           `json:"chunkIndex"`
	Start  time.Duration `json:"-"`
	End    time.Duration `json:"-"`
	Text   string        `json:"text"`
	Status Status        `json:"status"`

	// Serialized time bounds in seconds.
	StartSeconds float64 `json:"startTime"`
	EndSeconds   float64 `json:"endTime"`
}

// NewChunkResult builds a result with the serialized second fields filled in.
func NewChunkResult(index int, start, end time.Duration, text string, status Status) ChunkResult {
	return ChunkResult{
		Index:        index,
		Start:        start,
		End:          end,
		Text:         text,
		Status:       status,
		StartSeconds: start.Seconds(),
		EndSeconds:   end.Seconds(),
	}
}

// Meta carries the session facts the document reports alongside the text.
type Meta struct {
	FileName          string
	FileSize          int64
	EstimatedDuration time.Duration
	ProcessingTime    time.Duration
}

// Document is the final, immutable output of a session: the concatenated
// text plus file metadata and the complete per-chunk outcome list.
type Document struct {
	Text              string
	FileName          string
	FileSize          int64
	EstimatedDuration time.Duration
	ProcessingTime    time.Duration
	Timestamp         time.Time
	Results           []ChunkResult
}

// BlockSeparator joins per-chunk blocks in the assembled text.
const BlockSeparator = "\n\n"

// FormatBlock renders one chunk's contribution to the document text: a
// time-range header followed by the transcribed text (or the error
// placeholder).
func FormatBlock(r ChunkResult) string {
	return fmt.Sprintf("[%s - %s]\n%s", formatClock(r.Start), formatClock(r.End), r.Text)
}

// formatClock formats a position as HH:MM:SS or MM:SS.
func formatClock(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Assemble concatenates chunk results in index order into the final
// document. Multi-chunk sessions get a time-range header per block; a
// single-chunk session's text is passed through untouched.
func Assemble(results []ChunkResult, meta Meta) Document {
	var text string
	switch len(results) {
	case 0:
		text = ""
	case 1:
		text = results[0].Text
	default:
		blocks := make([]string, len(results))
		for i, r := range results {
			blocks[i] = FormatBlock(r)
		}
		text = strings.Join(blocks, BlockSeparator)
	}

	return Document{
		Text:              text,
		FileName:          meta.FileName,
		FileSize:          meta.FileSize,
		EstimatedDuration: meta.EstimatedDuration,
		ProcessingTime:    meta.ProcessingTime,
		Timestamp:         time.Now().UTC(),
		Results:           results,
	}
}
