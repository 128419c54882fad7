package audio

import "time"

// Precision tags how a split was produced, so callers and tests can tell the
// exact path from the degraded one instead of guessing from chunk contents.
type Precision int

const (
	// PrecisionSample means chunks were cut on exact sample-frame boundaries
	// from decoded audio and re-encoded as standalone containers.
	PrecisionSample Precision = iota

	// PrecisionEstimated means chunks are proportional byte slices of the
	// raw buffer. Boundaries may fall mid-frame and the reported time ranges
	// are fractions of the estimated total, not measured positions.
	PrecisionEstimated
)

func (p Precision) String() string {
	switch p {
	case PrecisionSample:
		return "sample"
	case PrecisionEstimated:
		return "estimated"
	default:
		return "unknown"
	}
}

// Chunk is one realized slice of the input audio: a planned segment plus the
// byte payload to submit for transcription.
type Chunk struct {
	Segment
	Data []byte
	MIME string
}

// SplitResult is an ordered, gap-free chunk sequence with its precision tag.
type SplitResult struct {
	Chunks    []Chunk
	Precision Precision
}

// Split cuts asset data into chunks of roughly chunkLen each.
//
// WAV input is decoded and sliced on exact frame boundaries, each slice
// re-encoded as an independently decodable container; the time ranges then
// come from real sample positions. Everything else (or a WAV that fails to
// decode) falls back to proportional byte slicing against the estimated
// total duration.
//
// A zero estimate or empty buffer yields an empty result, which callers
// treat as "nothing to split".
func Split(asset Asset, chunkLen, estimatedTotal time.Duration) SplitResult {
	if len(asset.Data) == 0 || chunkLen <= 0 {
		return SplitResult{Precision: PrecisionEstimated}
	}

	if asset.Format == "wav" {
		if pcm, err := DecodeWAV(asset.Data); err == nil {
			if chunks, err := splitPCM(pcm, chunkLen); err == nil {
				return SplitResult{Chunks: chunks, Precision: PrecisionSample}
			}
		}
	}

	return SplitResult{
		Chunks:    splitBytes(asset, chunkLen, estimatedTotal),
		Precision: PrecisionEstimated,
	}
}

// splitPCM slices decoded audio by frame count (chunkLen * sampleRate) and
// re-encodes each slice. Slice boundaries are aligned to whole frames so
// multi-channel interleaving survives the cut.
func splitPCM(pcm PCM, chunkLen time.Duration) ([]Chunk, error) {
	framesPerChunk := int(chunkLen.Seconds() * float64(pcm.SampleRate))
	if framesPerChunk <= 0 {
		framesPerChunk = 1
	}
	totalFrames := pcm.Frames()

	var chunks []Chunk
	for startFrame := 0; startFrame < totalFrames; startFrame += framesPerChunk {
		endFrame := min(startFrame+framesPerChunk, totalFrames)

		slice := PCM{
			Samples:    pcm.Samples[startFrame*pcm.Channels : endFrame*pcm.Channels],
			SampleRate: pcm.SampleRate,
			Channels:   pcm.Channels,
		}
		encoded, err := EncodeWAV(slice)
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, Chunk{
			Segment: Segment{
				Index: len(chunks) + 1,
				Start: frameTime(startFrame, pcm.SampleRate),
				End:   frameTime(endFrame, pcm.SampleRate),
			},
			Data: encoded,
			MIME: "audio/wav",
		})
	}

	return chunks, nil
}

func frameTime(frame, sampleRate int) time.Duration {
	return time.Duration(float64(frame) / float64(sampleRate) * float64(time.Second))
}

// splitBytes slices the raw buffer proportionally to the planned time
// segments. Chunk boundaries are not guaranteed to fall on container frame
// boundaries; this is a documented approximation, not a precise cut.
func splitBytes(asset Asset, chunkLen, estimatedTotal time.Duration) []Chunk {
	segments := PlanSegments(estimatedTotal, chunkLen)
	if len(segments) == 0 {
		return nil
	}

	total := len(asset.Data)
	chunks := make([]Chunk, 0, len(segments))
	for _, seg := range segments {
		startByte := proportionalOffset(total, seg.Start, estimatedTotal)
		endByte := proportionalOffset(total, seg.End, estimatedTotal)
		if seg.Index == len(segments) {
			endByte = total
		}
		if endByte <= startByte {
			continue
		}

		chunks = append(chunks, Chunk{
			Segment: Segment{Index: len(chunks) + 1, Start: seg.Start, End: seg.End},
			Data:    asset.Data[startByte:endByte],
			MIME:    asset.MIME,
		})
	}

	return chunks
}

func proportionalOffset(totalBytes int, at, total time.Duration) int {
	if total <= 0 {
		return 0
	}
	off := int(float64(totalBytes) * (float64(at) / float64(total)))
	return min(off, totalBytes)
}
