// Package session drives one uploaded asset through the chunked
// transcription pipeline: planning, optional splitting, strictly sequential
// per-chunk transcription with inter-chunk throttling, and final document
// assembly, emitting a typed event for every transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/scribestream/internal/audio"
	"github.com/alnah/scribestream/internal/metrics"
	"github.com/alnah/scribestream/internal/transcribe"
	"github.com/alnah/scribestream/internal/transcript"
)

var (
	// ErrMissingCredentials indicates no provider client is configured.
	// Session-fatal, detected at session start.
	ErrMissingCredentials = errors.New("transcription provider credentials missing")

	// ErrConsumerGone indicates the downstream consumer disconnected. Not an
	// error condition, a clean early termination: no further chunks are
	// processed and no document is delivered.
	ErrConsumerGone = errors.New("consumer disconnected")
)

// DefaultInterChunkDelay is the throttling pause between consecutive chunk
// calls, sized to stay under the upstream per-minute rate limit.
const DefaultInterChunkDelay = 20 * time.Second

// Session is the orchestration state for one submitted file. Sessions share
// no mutable state; one session exists per upload and chunk processing
// within it is strictly sequential.
type Session struct {
	id     uuid.UUID
	asset  audio.Asset
	client transcribe.Client
	sink   Sink
	waiter Waiter
	delay  time.Duration
	log    *slog.Logger
	m      *metrics.Metrics

	state   State
	results []transcript.ChunkResult
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session identifier instead of generating one. The upload
// boundary uses this to hand the consumer an identifier before the event
// stream starts.
func WithID(id uuid.UUID) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithWaiter substitutes the inter-chunk wait implementation.
func WithWaiter(w Waiter) Option {
	return func(s *Session) {
		if w != nil {
			s.waiter = w
		}
	}
}

// WithInterChunkDelay sets the pause between consecutive chunks.
func WithInterChunkDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches pipeline instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.m = m
	}
}

// New builds a session for one asset. client may be nil when no provider
// credential is configured; Run then fails immediately with
// ErrMissingCredentials.
func New(asset audio.Asset, client transcribe.Client, sink Sink, opts ...Option) *Session {
	s := &Session{
		id:     uuid.New(),
		asset:  asset,
		client: client,
		sink:   sink,
		waiter: TimerWaiter{},
		delay:  DefaultInterChunkDelay,
		log:    slog.Default(),
		state:  StatePlanning,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session_id", s.id.String(), "file", asset.Name)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Results returns the chunk outcomes recorded so far.
func (s *Session) Results() []transcript.ChunkResult { return s.results }

// Run executes the session to a terminal state and returns the assembled
// document. It returns (nil, ErrConsumerGone) when the consumer disconnects
// and (nil, err) for session-fatal failures. Chunk-level retry exhaustion is
// not fatal: the chunk gets an error placeholder and processing continues.
func (s *Session) Run(ctx context.Context) (*transcript.Document, error) {
	started := time.Now()
	s.m.RecordSessionStarted()
	s.log.Info("session started", "size", s.asset.Size, "format", s.asset.Format)

	// Input-fatal conditions, checked before any provider work.
	if len(s.asset.Data) == 0 {
		return s.fail(started, fmt.Errorf("%s: %w", s.asset.Name, audio.ErrEmptyAsset))
	}
	if s.client == nil {
		return s.fail(started, ErrMissingCredentials)
	}

	estimated := audio.EstimateDuration(s.asset.Size, s.asset.Format)
	if err := s.emit(Event{EventStart, StartPayload{
		FileName:          s.asset.Name,
		FileSize:          s.asset.Size,
		EstimatedDuration: estimated.Seconds(),
	}}); err != nil {
		return s.cancel(started, err)
	}

	chunks, err := s.plan(estimated)
	if err != nil {
		return s.cancel(started, err)
	}

	total := len(chunks)
	for i, chunk := range chunks {
		// Consumer liveness check at the chunk boundary; an in-flight
		// provider call cannot be interrupted, but the next one can be
		// prevented.
		if err := ctx.Err(); err != nil {
			return s.cancel(started, err)
		}

		s.transition(StateProcessing)
		if err := s.emit(Event{EventChunkStart, ChunkStartPayload{
			ChunkIndex:  chunk.Index,
			TotalChunks: total,
			StartTime:   chunk.Start.Seconds(),
			EndTime:     chunk.End.Seconds(),
		}}); err != nil {
			return s.cancel(started, err)
		}

		result, evType := s.processChunk(ctx, chunk)
		if err := ctx.Err(); err != nil {
			return s.cancel(started, err)
		}

		s.results = append(s.results, result)
		if err := s.emit(Event{evType, result}); err != nil {
			return s.cancel(started, err)
		}

		if i < total-1 {
			s.transition(StateWaiting)
			if err := s.emit(Event{EventWaiting, WaitingPayload{
				Message:  fmt.Sprintf("waiting %s before next chunk", s.delay),
				WaitTime: s.delay.Seconds(),
			}}); err != nil {
				return s.cancel(started, err)
			}
			if err := s.waiter.Wait(ctx, s.delay); err != nil {
				return s.cancel(started, err)
			}
		}
	}

	s.transition(StateAssembling)
	doc := transcript.Assemble(s.results, transcript.Meta{
		FileName:          s.asset.Name,
		FileSize:          s.asset.Size,
		EstimatedDuration: estimated,
		ProcessingTime:    time.Since(started),
	})
	if err := s.emit(Event{EventComplete, completePayload(&doc)}); err != nil {
		return s.cancel(started, err)
	}

	s.transition(StateCompleted)
	s.m.RecordSessionFinished("completed", time.Since(started).Seconds())
	s.log.Info("session completed", "chunks", total, "duration", time.Since(started))
	return &doc, nil
}

// plan runs the duration estimator and chunk planner and realizes the chunk
// sequence, splitting when the estimate exceeds the split threshold. An
// empty split result falls back to whole-file transcription.
func (s *Session) plan(estimated time.Duration) ([]audio.Chunk, error) {
	chunkLen, split := audio.ChunkLength(estimated)
	if split {
		s.transition(StateSplitting)
		if err := s.emit(Event{EventInfo, InfoPayload{
			Message: fmt.Sprintf("estimated duration %s, splitting into %s chunks",
				estimated.Round(time.Second), chunkLen),
		}}); err != nil {
			return nil, err
		}

		res := audio.Split(s.asset, chunkLen, estimated)
		if len(res.Chunks) > 0 {
			if res.Precision == audio.PrecisionEstimated {
				if err := s.emit(Event{EventInfo, InfoPayload{
					Message: "splitting on byte boundaries; chunk timestamps are estimates",
				}}); err != nil {
					return nil, err
				}
			}
			if err := s.emit(Event{EventChunksCreated, ChunksCreatedPayload{
				TotalChunks:   len(res.Chunks),
				ChunkDuration: chunkLen.Seconds(),
			}}); err != nil {
				return nil, err
			}
			return res.Chunks, nil
		}
		// Nothing to split; fall through to single-pass.
	}

	if err := s.emit(Event{EventInfo, InfoPayload{
		Message: "transcribing in a single pass",
	}}); err != nil {
		return nil, err
	}
	return []audio.Chunk{{
		Segment: audio.Segment{Index: 1, Start: 0, End: estimated},
		Data:    s.asset.Data,
		MIME:    s.asset.MIME,
	}}, nil
}

// processChunk runs one transcription call and records the outcome. Retry
// exhaustion and permanent provider rejections both degrade to a chunk-level
// error result; they never abort the session.
func (s *Session) processChunk(ctx context.Context, chunk audio.Chunk) (transcript.ChunkResult, EventType) {
	callStart := time.Now()
	text, err := s.client.Transcribe(ctx, chunk.Data, chunk.MIME)
	elapsed := time.Since(callStart)

	if err != nil {
		s.log.Warn("chunk transcription failed",
			"chunk", chunk.Index, "start", chunk.Start, "end", chunk.End, "error", err)
		s.m.RecordChunk("error", elapsed.Seconds(), len(chunk.Data))
		return transcript.NewChunkResult(chunk.Index, chunk.Start, chunk.End,
			transcript.ErrorPlaceholder, transcript.StatusError), EventChunkError
	}

	s.m.RecordChunk("success", elapsed.Seconds(), len(chunk.Data))
	return transcript.NewChunkResult(chunk.Index, chunk.Start, chunk.End,
		text, transcript.StatusSuccess), EventChunkComplete
}

func (s *Session) transition(next State) {
	if s.state == next {
		return
	}
	s.state = next
	s.log.Debug("state transition", "state", next.String())
}

// emit sends one event; a send failure means the consumer is gone.
func (s *Session) emit(ev Event) error {
	if err := s.sink.Send(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrConsumerGone, err)
	}
	return nil
}

// cancel terminates the session for a gone consumer. Already-produced
// results are discarded: no partial document is emitted to a consumer that
// cannot receive it.
func (s *Session) cancel(started time.Time, cause error) (*transcript.Document, error) {
	s.transition(StateCancelled)
	s.results = nil
	s.m.RecordSessionFinished("cancelled", time.Since(started).Seconds())
	s.log.Info("session cancelled", "cause", cause)
	if errors.Is(cause, ErrConsumerGone) {
		return nil, cause
	}
	return nil, fmt.Errorf("%w: %v", ErrConsumerGone, cause)
}

// fail terminates the session for an input-fatal condition, notifying the
// consumer on a best-effort basis.
func (s *Session) fail(started time.Time, err error) (*transcript.Document, error) {
	s.transition(StateFailed)
	_ = s.sink.Send(Event{EventError, ErrorPayload{Error: err.Error()}})
	s.m.RecordSessionFinished("failed", time.Since(started).Seconds())
	s.log.Error("session failed", "error", err)
	return nil, err
}
