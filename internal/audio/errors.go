package audio

import "errors"

var (
	// ErrEmptyAsset indicates an uploaded file had no content.
	ErrEmptyAsset = errors.New("empty audio asset")

	// ErrUnsupportedFormat indicates an audio file has an unsupported extension.
	// Wrap with the format: fmt.Errorf("unsupported audio format %q: %w", ext, ErrUnsupportedFormat)
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidWAV indicates a byte buffer is not a decodable PCM WAV container.
	ErrInvalidWAV = errors.New("invalid WAV data")
)
