package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeader is the fixed 44-byte RIFF header of a canonical PCM WAV file.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // byte length of the data section
}

const wavHeaderSize = 44

// PCM holds decoded 16-bit audio: interleaved samples plus the layout needed
// to slice and re-encode them.
type PCM struct {
	Samples    []int16 // interleaved, Channels samples per frame
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (p PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the decoded length in seconds.
func (p PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// DecodeWAV decodes a canonical PCM-16 WAV buffer. Mono and multi-channel
// data are supported; compressed or non-16-bit containers are rejected with
// ErrInvalidWAV so callers can fall back to approximate splitting.
func DecodeWAV(data []byte) (PCM, error) {
	if len(data) < wavHeaderSize {
		return PCM{}, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidWAV, wavHeaderSize, len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return PCM{}, fmt.Errorf("%w: missing RIFF header", ErrInvalidWAV)
	case string(header.Format[:]) != "WAVE":
		return PCM{}, fmt.Errorf("%w: missing WAVE format", ErrInvalidWAV)
	case string(header.Subchunk1ID[:]) != "fmt ":
		return PCM{}, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	case string(header.Subchunk2ID[:]) != "data":
		return PCM{}, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
	case header.AudioFormat != 1:
		return PCM{}, fmt.Errorf("%w: audio format %d is not PCM", ErrInvalidWAV, header.AudioFormat)
	case header.BitsPerSample != 16:
		return PCM{}, fmt.Errorf("%w: %d bits per sample, only 16 supported", ErrInvalidWAV, header.BitsPerSample)
	case header.NumChannels == 0:
		return PCM{}, fmt.Errorf("%w: zero channels", ErrInvalidWAV)
	case header.SampleRate == 0:
		return PCM{}, fmt.Errorf("%w: zero sample rate", ErrInvalidWAV)
	}

	// Clamp the declared data size to what is actually present.
	dataBytes := int(header.Subchunk2Size)
	if avail := len(data) - wavHeaderSize; dataBytes > avail {
		dataBytes = avail
	}
	numSamples := dataBytes / 2
	if numSamples == 0 {
		return PCM{}, fmt.Errorf("%w: no audio data", ErrInvalidWAV)
	}

	samples := make([]int16, numSamples)
	body := bytes.NewReader(data[wavHeaderSize : wavHeaderSize+numSamples*2])
	if err := binary.Read(body, binary.LittleEndian, samples); err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	return PCM{
		Samples:    samples,
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
	}, nil
}

// EncodeWAV encodes interleaved PCM-16 samples into a self-contained WAV
// buffer that decodes independently of its source file.
func EncodeWAV(p PCM) ([]byte, error) {
	if len(p.Samples) == 0 {
		return nil, fmt.Errorf("%w: no samples to encode", ErrInvalidWAV)
	}
	if p.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidWAV, p.SampleRate)
	}
	if p.Channels <= 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidWAV, p.Channels)
	}

	const bitsPerSample = 16
	dataSize := uint32(len(p.Samples) * 2)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(p.Channels),
		SampleRate:    uint32(p.SampleRate),
		ByteRate:      uint32(p.SampleRate) * uint32(p.Channels) * bitsPerSample / 8,
		BlockAlign:    uint16(p.Channels) * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(p.Samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, p.Samples); err != nil {
		return nil, fmt.Errorf("write WAV data: %w", err)
	}

	return buf.Bytes(), nil
}
