package audio_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/alnah/scribestream/internal/audio"
)

func TestNewAsset(t *testing.T) {
	t.Parallel()

	t.Run("valid upload", func(t *testing.T) {
		t.Parallel()

		asset, err := audio.NewAsset("meeting.mp3", []byte("payload"))
		if err != nil {
			t.Fatalf("NewAsset() error: %v", err)
		}
		if asset.Format != "mp3" {
			t.Errorf("format = %q, want mp3", asset.Format)
		}
		if asset.MIME != "audio/mpeg" {
			t.Errorf("MIME = %q, want audio/mpeg", asset.MIME)
		}
		if asset.Name != "meeting.mp3" {
			t.Errorf("name = %q, want meeting.mp3", asset.Name)
		}
		if asset.Size != 7 {
			t.Errorf("size = %d, want 7", asset.Size)
		}
	})

	t.Run("extension case is normalized", func(t *testing.T) {
		t.Parallel()

		asset, err := audio.NewAsset("VOICE.M4A", []byte("payload"))
		if err != nil {
			t.Fatalf("NewAsset() error: %v", err)
		}
		if asset.Format != "m4a" {
			t.Errorf("format = %q, want m4a", asset.Format)
		}
		if asset.MIME != "audio/x-m4a" {
			t.Errorf("MIME = %q, want audio/x-m4a", asset.MIME)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		_, err := audio.NewAsset("notes.txt", []byte("payload"))
		if !errors.Is(err, audio.ErrUnsupportedFormat) {
			t.Errorf("NewAsset() error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("missing extension", func(t *testing.T) {
		t.Parallel()

		_, err := audio.NewAsset("noext", []byte("payload"))
		if !errors.Is(err, audio.ErrUnsupportedFormat) {
			t.Errorf("NewAsset() error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()

		_, err := audio.NewAsset("meeting.mp3", nil)
		if !errors.Is(err, audio.ErrEmptyAsset) {
			t.Errorf("NewAsset() error = %v, want ErrEmptyAsset", err)
		}
	})
}

func TestSupportedFormats(t *testing.T) {
	t.Parallel()

	formats := audio.SupportedFormats()
	if !slices.IsSorted(formats) {
		t.Errorf("SupportedFormats() not sorted: %v", formats)
	}
	for _, f := range []string{"mp3", "wav", "m4a", "ogg", "flac", "webm"} {
		if !slices.Contains(formats, f) {
			t.Errorf("SupportedFormats() missing %q", f)
		}
		if !audio.SupportedFormat("." + f) {
			t.Errorf("SupportedFormat(.%s) = false, want true", f)
		}
	}
	if audio.SupportedFormat(".txt") {
		t.Error("SupportedFormat(.txt) = true, want false")
	}
}
