package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/scribestream/internal/apierr"
)

// Default provider call policy. The flat (non-exponential) retry delay is
// deliberate: the upstream rate limiter recovers on a fixed window, so a flat
// pause absorbs 429s without the long tail exponential backoff would add.
const (
	DefaultAttempts = 3
	DefaultBackoff  = 20 * time.Second

	// MinPayloadBytes is the floor below which a chunk is rejected as
	// malformed input without consuming an attempt or calling the provider.
	MinPayloadBytes = 1024
)

// DefaultModels is the ordered model fallback list: the first identifier to
// succeed wins.
var DefaultModels = []string{"gpt-4o-mini-transcribe", "whisper-1"}

// ErrPayloadTooSmall indicates a chunk below the minimum byte floor.
// Wrap with size: fmt.Errorf("chunk is %d bytes: %w", n, ErrPayloadTooSmall)
var ErrPayloadTooSmall = errors.New("audio payload below minimum size")

// formatFallbacks lists alternate declared MIME labels to retry when the
// provider is known to reject a container for inline audio. Ordered; the
// original label is always tried first.
var formatFallbacks = map[string][]string{
	"audio/x-m4a": {"audio/mp4", "audio/mpeg"},
	"audio/webm":  {"audio/ogg"},
	"audio/aac":   {"audio/mpeg"},
}

// extByMIME maps declared MIME labels to the file extension the provider
// infers the container from.
var extByMIME = map[string]string{
	"audio/mpeg":  "mp3",
	"audio/mp4":   "mp4",
	"audio/x-m4a": "m4a",
	"audio/aac":   "aac",
	"audio/wav":   "wav",
	"audio/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/flac":  "flac",
}

// Client transcribes one audio payload under a declared MIME label.
// Implementations fail with an apierr sentinel wrapped in context: transient
// sentinels mean the caller may treat the chunk as retriable-at-a-higher-level,
// permanent ones mean the content itself was rejected.
type Client interface {
	Transcribe(ctx context.Context, data []byte, mime string) (string, error)
}

// audioTranscriber is the narrow slice of the OpenAI client this package
// uses. *openai.Client implements it implicitly; tests inject mocks.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Client           = (*OpenAIClient)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIClient calls OpenAI's transcription API with ordered model and
// declared-format fallback and bounded flat-delay retries per combination.
type OpenAIClient struct {
	api      audioTranscriber
	models   []string
	attempts int
	backoff  time.Duration
	minBytes int
	onCall   func()
	onRetry  func()
}

// Option configures an OpenAIClient.
type Option func(*OpenAIClient)

// WithModels sets the ordered model fallback list.
func WithModels(models []string) Option {
	return func(c *OpenAIClient) {
		if len(models) > 0 {
			c.models = models
		}
	}
}

// WithAttempts sets the attempts per (model, format) combination.
func WithAttempts(n int) Option {
	return func(c *OpenAIClient) {
		if n >= 1 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the flat delay between retry attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *OpenAIClient) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithMinPayloadBytes sets the minimum chunk payload size.
func WithMinPayloadBytes(n int) Option {
	return func(c *OpenAIClient) {
		if n >= 0 {
			c.minBytes = n
		}
	}
}

// WithObserver installs hooks invoked on every provider call and on every
// retry of a failed call. Used to feed instrumentation without coupling this
// package to a metrics backend.
func WithObserver(onCall, onRetry func()) Option {
	return func(c *OpenAIClient) {
		c.onCall = onCall
		c.onRetry = onRetry
	}
}

// NewOpenAIClient creates a client around an injected *openai.Client.
func NewOpenAIClient(api *openai.Client, opts ...Option) *OpenAIClient {
	return newClient(api, opts...)
}

// newClient exists so tests can inject an audioTranscriber mock.
func newClient(api audioTranscriber, opts ...Option) *OpenAIClient {
	c := &OpenAIClient{
		api:      api,
		models:   DefaultModels,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		minBytes: MinPayloadBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe submits data under mime, walking the model fallback list and,
// for containers the provider rejects inline, the declared-format fallback
// list. Each (model, format) combination gets bounded flat-delay retries;
// an empty or whitespace-only transcript counts as a failed attempt. If
// everything fails, the last error is returned.
func (c *OpenAIClient) Transcribe(ctx context.Context, data []byte, mime string) (string, error) {
	if len(data) < c.minBytes {
		return "", fmt.Errorf("chunk is %d bytes (minimum %d): %w", len(data), c.minBytes, ErrPayloadTooSmall)
	}

	labels := append([]string{mime}, formatFallbacks[mime]...)

	var lastErr error
	for _, model := range c.models {
		for _, label := range labels {
			text, err := c.attemptWithRetry(ctx, data, model, label)
			if err == nil {
				return text, nil
			}
			lastErr = err

			// Credential and quota failures apply to every model alike;
			// trying the rest of the list only burns time.
			if errors.Is(err, apierr.ErrAuthFailed) ||
				errors.Is(err, apierr.ErrQuotaExceeded) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
		}
	}

	return "", lastErr
}

// attemptWithRetry runs one (model, format) combination under the flat retry
// policy.
func (c *OpenAIClient) attemptWithRetry(ctx context.Context, data []byte, model, label string) (string, error) {
	cfg := apierr.RetryConfig{Attempts: c.attempts, Delay: c.backoff}

	calls := 0
	return apierr.Retry(ctx, cfg, func() (string, error) {
		calls++
		if c.onCall != nil {
			c.onCall()
		}
		if calls > 1 && c.onRetry != nil {
			c.onRetry()
		}

		req := openai.AudioRequest{
			Model:    model,
			Reader:   bytes.NewReader(data),
			FilePath: "chunk." + extForMIME(label),
			Format:   openai.AudioResponseFormatJSON,
		}

		resp, err := c.api.CreateTranscription(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		if strings.TrimSpace(resp.Text) == "" {
			return "", apierr.ErrEmptyResult
		}
		return resp.Text, nil
	}, apierr.Transient)
}

func extForMIME(mime string) string {
	if ext, ok := extByMIME[mime]; ok {
		return ext
	}
	return "mp3"
}

// classifyError maps provider API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// Distinguish a temporary rate limit from an exhausted quota.
			if strings.Contains(apiErr.Message, "quota") ||
				strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusUnsupportedMediaType:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
