package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/alnah/scribestream/internal/audio"
	"github.com/alnah/scribestream/internal/session"
)

// uploadFrame is the first client message on the websocket transport.
type uploadFrame struct {
	FileName string `json:"fileName"`
	Data     string `json:"data"` // base64 audio payload
}

// eventFrame is the wire shape of every server message.
type eventFrame struct {
	Type session.EventType `json:"type"`
	Data any               `json:"data"`
}

func requireWebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// websocketHandler runs one session per connection. The client sends a single
// upload frame, then only reads; any later client frame or read error counts
// as a disconnect.
func (s *Server) websocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()
		sink := &wsSink{conn: conn}

		var frame uploadFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		asset, err := decodeUploadFrame(frame, s.cfg.Server.MaxUploadBytes())
		if err != nil {
			_ = sink.Send(session.Event{Type: session.EventError,
				Data: session.ErrorPayload{Error: err.Error()}})
			return
		}

		ctx, cancel := context.WithCancel(s.baseCtx)
		defer cancel()
		sink.cancel = cancel

		// Read pump: the only expected read result is an error when the peer
		// leaves, which cancels the running session.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		id := uuid.New()
		sess := session.New(asset, s.client, sink,
			append(s.sessionOptions(), session.WithID(id))...)
		if _, err := sess.Run(ctx); err != nil && !errors.Is(err, session.ErrConsumerGone) {
			s.log.Warn("websocket session ended with error",
				"session_id", id.String(), "error", err)
		}
	})
}

func decodeUploadFrame(frame uploadFrame, maxBytes int64) (audio.Asset, error) {
	if frame.FileName == "" {
		return audio.Asset{}, errors.New("upload frame missing fileName")
	}
	if !audio.SupportedFormat(filepath.Ext(frame.FileName)) {
		return audio.Asset{}, fmt.Errorf("unsupported file format; accepted: %v",
			audio.SupportedFormats())
	}
	data, err := base64.StdEncoding.DecodeString(frame.Data)
	if err != nil {
		return audio.Asset{}, fmt.Errorf("decode audio payload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return audio.Asset{}, fmt.Errorf("file exceeds the %dMB upload limit", maxBytes/(1024*1024))
	}
	return audio.NewAsset(frame.FileName, data)
}

// wsSink delivers events as JSON frames. WriteJSON failures mark the consumer
// gone and cancel the session context.
type wsSink struct {
	conn   *websocket.Conn
	cancel context.CancelFunc

	mu   sync.Mutex
	gone bool
}

func (s *wsSink) Send(ev session.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return errors.New("websocket closed")
	}
	if err := s.conn.WriteJSON(eventFrame{Type: ev.Type, Data: ev.Data}); err != nil {
		s.gone = true
		if s.cancel != nil {
			s.cancel()
		}
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}
