package server_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alnah/scribestream/internal/config"
	"github.com/alnah/scribestream/internal/server"
	"github.com/alnah/scribestream/internal/session"
)

type stubClient struct {
	text string
}

func (c stubClient) Transcribe(context.Context, []byte, string) (string, error) {
	return c.text, nil
}

type zeroWaiter struct{}

func (zeroWaiter) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, opts ...server.Option) *server.Server {
	t.Helper()

	cfg := config.Default()
	cfg.Server.MaxUploadMB = 1
	cfg.Metrics.Enabled = false

	base := []server.Option{
		server.WithClient(stubClient{text: "stub transcript"}),
		server.WithWaiter(zeroWaiter{}),
	}
	return server.New(cfg, testLogger(), append(base, opts...)...)
}

func uploadRequest(t *testing.T, fileName string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestTranscribeRejectsBadUploads(t *testing.T) {
	t.Parallel()

	t.Run("missing file field", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("unrelated", "value")
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("Test() error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		resp, err := srv.App().Test(uploadRequest(t, "notes.txt", []byte("not audio")))
		if err != nil {
			t.Fatalf("Test() error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", resp.StatusCode)
		}
	})

	t.Run("oversized file", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		big := bytes.Repeat([]byte{0x00}, 1024*1024+64)
		resp, err := srv.App().Test(uploadRequest(t, "big.mp3", big))
		if err != nil {
			t.Fatalf("Test() error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", resp.StatusCode)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		resp, err := srv.App().Test(uploadRequest(t, "empty.mp3", nil))
		if err != nil {
			t.Fatalf("Test() error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestTranscribeStreamsEvents(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := srv.App().Test(uploadRequest(t, "short.mp3", []byte("tiny audio payload")), 5000)
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q, want text/event-stream", got)
	}
	if resp.Header.Get("X-Session-Id") == "" {
		t.Error("X-Session-Id header missing")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	stream := string(body)

	for _, ev := range []session.EventType{
		session.EventStart,
		session.EventInfo,
		session.EventChunkStart,
		session.EventChunkComplete,
		session.EventComplete,
	} {
		if !strings.Contains(stream, "event: "+string(ev)+"\n") {
			t.Errorf("stream missing %q event:\n%s", ev, stream)
		}
	}
	if !strings.Contains(stream, "stub transcript") {
		t.Error("stream does not carry the transcript text")
	}
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/v1/transcriptions/ws", nil))
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
