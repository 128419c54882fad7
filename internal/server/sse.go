package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/alnah/scribestream/internal/audio"
	"github.com/alnah/scribestream/internal/session"
)

// handleTranscribe accepts one multipart upload under the "file" field and
// answers with an SSE stream of session events. Validation failures are plain
// JSON errors; once streaming starts, failures arrive as error events.
func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}
	if header.Size > s.cfg.Server.MaxUploadBytes() {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %dMB upload limit", s.cfg.Server.MaxUploadMB))
	}
	if !audio.SupportedFormat(filepath.Ext(header.Filename)) {
		return fiber.NewError(fiber.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported file format; accepted: %v", audio.SupportedFormats()))
	}

	data, err := readUpload(header)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
	}
	asset, err := audio.NewAsset(header.Filename, data)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	id := uuid.New()
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Session-Id", id.String())

	base := s.baseCtx
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(base)
		defer cancel()

		sink := &sseSink{w: w, cancel: cancel}
		sess := session.New(asset, s.client, sink,
			append(s.sessionOptions(), session.WithID(id))...)
		if _, err := sess.Run(ctx); err != nil && !errors.Is(err, session.ErrConsumerGone) {
			s.log.Warn("session ended with error", "session_id", id.String(), "error", err)
		}
	}))
	return nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// sseSink writes events in text/event-stream framing. The first failed write
// or flush marks the consumer gone: the session context is cancelled and
// every later Send fails fast.
type sseSink struct {
	w      *bufio.Writer
	cancel context.CancelFunc

	mu   sync.Mutex
	gone bool
}

func (s *sseSink) Send(ev session.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return errors.New("sse stream closed")
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return s.markGone(err)
	}
	// Flush per event; buffered delivery would defeat live progress and hide
	// disconnects until the buffer fills.
	if err := s.w.Flush(); err != nil {
		return s.markGone(err)
	}
	return nil
}

func (s *sseSink) markGone(err error) error {
	s.gone = true
	s.cancel()
	return fmt.Errorf("sse write: %w", err)
}
