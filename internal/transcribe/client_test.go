package transcribe_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/scribestream/internal/apierr"
	"github.com/alnah/scribestream/internal/transcribe"
)

// recordedCall captures what one CreateTranscription invocation saw.
type recordedCall struct {
	model    string
	filePath string
	payload  []byte
}

// mockTranscriber scripts CreateTranscription responses and records calls.
type mockTranscriber struct {
	responses []func() (openai.AudioResponse, error)
	calls     []recordedCall
}

func (m *mockTranscriber) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	var payload []byte
	if req.Reader != nil {
		payload, _ = io.ReadAll(req.Reader)
	}
	m.calls = append(m.calls, recordedCall{
		model:    req.Model,
		filePath: req.FilePath,
		payload:  payload,
	})

	idx := len(m.calls) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx]()
}

func respondText(text string) func() (openai.AudioResponse, error) {
	return func() (openai.AudioResponse, error) {
		return openai.AudioResponse{Text: text}, nil
	}
}

func respondErr(err error) func() (openai.AudioResponse, error) {
	return func() (openai.AudioResponse, error) {
		return openai.AudioResponse{}, err
	}
}

func apiError(status int, message string) *openai.APIError {
	return &openai.APIError{HTTPStatusCode: status, Message: message}
}

// payload returns a buffer above the default minimum chunk size.
func payload() []byte {
	return bytes.Repeat([]byte{0x42}, 2048)
}

func newTestClient(mock *mockTranscriber, opts ...transcribe.Option) *transcribe.OpenAIClient {
	base := []transcribe.Option{transcribe.WithBackoff(time.Millisecond)}
	return transcribe.NewClientWithTranscriber(mock, append(base, opts...)...)
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	t.Run("first attempt succeeds", func(t *testing.T) {
		t.Parallel()

		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			respondText("hello world"),
		}}
		client := newTestClient(mock)

		text, err := client.Transcribe(context.Background(), payload(), "audio/mpeg")
		if err != nil {
			t.Fatalf("Transcribe() error: %v", err)
		}
		if text != "hello world" {
			t.Errorf("got %q, want %q", text, "hello world")
		}
		if len(mock.calls) != 1 {
			t.Fatalf("call count = %d, want 1", len(mock.calls))
		}
		if got := mock.calls[0].model; got != "gpt-4o-mini-transcribe" {
			t.Errorf("model = %q, want the first default model", got)
		}
		if got := mock.calls[0].filePath; got != "chunk.mp3" {
			t.Errorf("file path = %q, want chunk.mp3", got)
		}
	})

	t.Run("payload below the minimum never reaches the provider", func(t *testing.T) {
		t.Parallel()

		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			respondText("should not be called"),
		}}
		client := newTestClient(mock)

		_, err := client.Transcribe(context.Background(), []byte("tiny"), "audio/mpeg")
		if !errors.Is(err, transcribe.ErrPayloadTooSmall) {
			t.Fatalf("error = %v, want ErrPayloadTooSmall", err)
		}
		if len(mock.calls) != 0 {
			t.Errorf("call count = %d, want 0", len(mock.calls))
		}
	})

	t.Run("empty transcript is retried then succeeds", func(t *testing.T) {
		t.Parallel()

		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			respondText("   "),
			respondText(""),
			respondText("third time"),
		}}
		client := newTestClient(mock)

		text, err := client.Transcribe(context.Background(), payload(), "audio/mpeg")
		if err != nil {
			t.Fatalf("Transcribe() error: %v", err)
		}
		if text != "third time" {
			t.Errorf("got %q, want %q", text, "third time")
		}
		if len(mock.calls) != 3 {
			t.Errorf("call count = %d, want 3", len(mock.calls))
		}
	})

	t.Run("transient errors exhaust retries then fall back to the next model", func(t *testing.T) {
		t.Parallel()

		rateLimited := respondErr(apiError(429, "rate limit reached"))
		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			rateLimited, rateLimited, rateLimited,
			respondText("fallback model wins"),
		}}
		client := newTestClient(mock, transcribe.WithAttempts(3))

		text, err := client.Transcribe(context.Background(), payload(), "audio/mpeg")
		if err != nil {
			t.Fatalf("Transcribe() error: %v", err)
		}
		if text != "fallback model wins" {
			t.Errorf("got %q, want %q", text, "fallback model wins")
		}
		if len(mock.calls) != 4 {
			t.Fatalf("call count = %d, want 4", len(mock.calls))
		}
		for i := 0; i < 3; i++ {
			if mock.calls[i].model != "gpt-4o-mini-transcribe" {
				t.Errorf("call %d model = %q, want primary", i, mock.calls[i].model)
			}
		}
		if mock.calls[3].model != "whisper-1" {
			t.Errorf("call 4 model = %q, want whisper-1", mock.calls[3].model)
		}
	})

	t.Run("bad request walks the declared-format fallback list", func(t *testing.T) {
		t.Parallel()

		rejected := respondErr(apiError(400, "unsupported file format"))
		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			rejected,
			respondText("mp4 label accepted"),
		}}
		client := newTestClient(mock, transcribe.WithAttempts(1))

		text, err := client.Transcribe(context.Background(), payload(), "audio/x-m4a")
		if err != nil {
			t.Fatalf("Transcribe() error: %v", err)
		}
		if text != "mp4 label accepted" {
			t.Errorf("got %q, want %q", text, "mp4 label accepted")
		}
		if len(mock.calls) != 2 {
			t.Fatalf("call count = %d, want 2", len(mock.calls))
		}
		if got := mock.calls[0].filePath; got != "chunk.m4a" {
			t.Errorf("first call file path = %q, want chunk.m4a", got)
		}
		if got := mock.calls[1].filePath; got != "chunk.mp4" {
			t.Errorf("second call file path = %q, want chunk.mp4", got)
		}
	})

	t.Run("auth failure short-circuits every fallback", func(t *testing.T) {
		t.Parallel()

		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			respondErr(apiError(401, "invalid api key")),
		}}
		client := newTestClient(mock, transcribe.WithAttempts(3))

		_, err := client.Transcribe(context.Background(), payload(), "audio/x-m4a")
		if !errors.Is(err, apierr.ErrAuthFailed) {
			t.Fatalf("error = %v, want ErrAuthFailed", err)
		}
		if len(mock.calls) != 1 {
			t.Errorf("call count = %d, want 1 (no fallback after auth failure)", len(mock.calls))
		}
	})

	t.Run("quota exhaustion on 429 short-circuits", func(t *testing.T) {
		t.Parallel()

		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			respondErr(apiError(429, "you exceeded your current quota")),
		}}
		client := newTestClient(mock, transcribe.WithAttempts(3))

		_, err := client.Transcribe(context.Background(), payload(), "audio/mpeg")
		if !errors.Is(err, apierr.ErrQuotaExceeded) {
			t.Fatalf("error = %v, want ErrQuotaExceeded", err)
		}
		if len(mock.calls) != 1 {
			t.Errorf("call count = %d, want 1", len(mock.calls))
		}
	})

	t.Run("all combinations exhausted returns the last error", func(t *testing.T) {
		t.Parallel()

		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			respondErr(apiError(503, "overloaded")),
		}}
		client := newTestClient(mock,
			transcribe.WithModels([]string{"only-model"}),
			transcribe.WithAttempts(2),
		)

		_, err := client.Transcribe(context.Background(), payload(), "audio/mpeg")
		if !errors.Is(err, apierr.ErrTimeout) {
			t.Fatalf("error = %v, want ErrTimeout", err)
		}
		if !strings.Contains(err.Error(), "attempts failed") {
			t.Errorf("error %q does not report retry exhaustion", err)
		}
		if len(mock.calls) != 2 {
			t.Errorf("call count = %d, want 2", len(mock.calls))
		}
	})

	t.Run("observer hooks count calls and retries", func(t *testing.T) {
		t.Parallel()

		mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
			respondErr(apiError(429, "rate limit reached")),
			respondText("done"),
		}}
		var calls, retries int
		client := newTestClient(mock,
			transcribe.WithAttempts(3),
			transcribe.WithObserver(
				func() { calls++ },
				func() { retries++ },
			),
		)

		if _, err := client.Transcribe(context.Background(), payload(), "audio/mpeg"); err != nil {
			t.Fatalf("Transcribe() error: %v", err)
		}
		if calls != 2 {
			t.Errorf("observed calls = %d, want 2", calls)
		}
		if retries != 1 {
			t.Errorf("observed retries = %d, want 1", retries)
		}
	})
}
