package audio

import "time"

// SplitThreshold is the global split/no-split boundary: audio estimated at or
// below this duration is transcribed in a single pass.
const SplitThreshold = 5 * time.Minute

// Chunk length tiers. Longer audio gets shorter chunks so that each provider
// call stays well inside the upstream payload and rate limits.
const (
	tierLong   = 30 * time.Minute
	tierMedium = 15 * time.Minute

	chunkLenLong   = 60 * time.Second
	chunkLenMedium = 120 * time.Second
	chunkLenShort  = 180 * time.Second
)

// ChunkLength selects the chunk duration for an estimated total duration.
// The second return value is false when the audio should be processed whole
// (estimate at or below SplitThreshold).
func ChunkLength(total time.Duration) (time.Duration, bool) {
	switch {
	case total > tierLong:
		return chunkLenLong, true
	case total > tierMedium:
		return chunkLenMedium, true
	case total > SplitThreshold:
		return chunkLenShort, true
	default:
		return 0, false
	}
}

// Segment is one planned time range. Index is 1-based and dense; segments
// are contiguous with no gaps or overlaps and cover [0, total).
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the segment.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// PlanSegments covers total with chunkLen-sized segments. The final segment
// is shortened to end exactly at total. Returns nil when total or chunkLen
// is non-positive.
func PlanSegments(total, chunkLen time.Duration) []Segment {
	if total <= 0 || chunkLen <= 0 {
		return nil
	}

	var segments []Segment
	for start := time.Duration(0); start < total; start += chunkLen {
		end := min(start+chunkLen, total)
		segments = append(segments, Segment{
			Index: len(segments) + 1,
			Start: start,
			End:   end,
		})
	}
	return segments
}
