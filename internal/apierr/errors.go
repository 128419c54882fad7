package apierr

import "errors"

// Sentinel errors for the external transcription provider.
//
// Usage pattern: wrap sentinels with context at call site using fmt.Errorf:
//
//	return fmt.Errorf("chunk %d: %w", idx, ErrRateLimit)
//
// This preserves errors.Is() compatibility while adding context.

// --- Transient errors (retried with a flat delay) ---

var (
	// ErrRateLimit indicates the provider rejected the request for rate
	// limiting (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout indicates a request timed out or the provider returned a
	// retryable server error.
	ErrTimeout = errors.New("request timeout")

	// ErrEmptyResult indicates the provider returned an empty or
	// whitespace-only transcript. Treated as a failed attempt and retried.
	ErrEmptyResult = errors.New("empty transcription result")
)

// --- Permanent errors (never retried) ---

var (
	// ErrAuthFailed indicates provider authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrQuotaExceeded indicates the provider quota was exhausted (billing
	// issue, not retryable). Different from ErrRateLimit: it requires user
	// action.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrBadRequest indicates the provider rejected the request content
	// itself (unsupported payload, malformed audio).
	ErrBadRequest = errors.New("provider rejected request")
)

// Transient reports whether err is a retryable provider error.
func Transient(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrEmptyResult)
}
