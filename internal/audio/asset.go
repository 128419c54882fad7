package audio

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// mimeByFormat maps canonical format labels (file extensions without the dot)
// to the MIME label declared to the transcription provider.
var mimeByFormat = map[string]string{
	"mp3":  "audio/mpeg",
	"mpga": "audio/mpeg",
	"mpeg": "audio/mpeg",
	"mp4":  "audio/mp4",
	"m4a":  "audio/x-m4a",
	"aac":  "audio/aac",
	"wav":  "audio/wav",
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"flac": "audio/flac",
}

// SupportedFormat reports whether ext (with or without a leading dot) is an
// accepted upload format.
func SupportedFormat(ext string) bool {
	_, ok := mimeByFormat[normalizeFormat(ext)]
	return ok
}

// SupportedFormats returns the accepted format labels, sorted for stable
// error messages.
func SupportedFormats() []string {
	formats := make([]string, 0, len(mimeByFormat))
	for f := range mimeByFormat {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}

func normalizeFormat(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Asset is the immutable input to a transcription session: the uploaded
// bytes plus their declared container format. Created once at session start
// and never mutated.
type Asset struct {
	Data   []byte
	Format string // canonical extension label, e.g. "mp3"
	MIME   string // declared MIME label, e.g. "audio/mpeg"
	Name   string // original file name
	Size   int64  // byte length of the original upload
}

// NewAsset validates the upload and builds an Asset. The file extension must
// be on the allow-list and the payload must be non-empty; size and extension
// screening beyond that is the upload boundary's job and is assumed done.
func NewAsset(fileName string, data []byte) (Asset, error) {
	format := normalizeFormat(filepath.Ext(fileName))
	mime, ok := mimeByFormat[format]
	if !ok {
		return Asset{}, fmt.Errorf("unsupported audio format %q: %w", format, ErrUnsupportedFormat)
	}
	if len(data) == 0 {
		return Asset{}, fmt.Errorf("%s: %w", fileName, ErrEmptyAsset)
	}

	return Asset{
		Data:   data,
		Format: format,
		MIME:   mime,
		Name:   fileName,
		Size:   int64(len(data)),
	}, nil
}
