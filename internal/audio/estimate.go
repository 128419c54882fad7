package audio

import "time"

// Per-format bitrate assumptions in kbps, used to estimate duration from raw
// byte size without decoding. Values are conservative typical encodings; the
// estimate drives planning decisions only and is never authoritative.
var bitrateKbps = map[string]float64{
	"mp3":  128,
	"mpga": 128,
	"mpeg": 128,
	"mp4":  128,
	"m4a":  96,
	"aac":  96,
	"ogg":  96,
	"oga":  96,
	"webm": 64,
	"flac": 850,
	"wav":  1411,
}

// defaultBitrateKbps is used for formats without a table entry.
const defaultBitrateKbps = 128

// EstimateDuration maps a byte length and declared format to an approximate
// duration: size_bytes * 8 / (bitrate_kbps * 1000). Unknown formats silently
// use the default bitrate. Purely deterministic, never fails.
func EstimateDuration(sizeBytes int64, format string) time.Duration {
	if sizeBytes <= 0 {
		return 0
	}

	kbps, ok := bitrateKbps[normalizeFormat(format)]
	if !ok {
		kbps = defaultBitrateKbps
	}

	seconds := float64(sizeBytes) * 8 / (kbps * 1000)
	return time.Duration(seconds * float64(time.Second))
}
