// Package server exposes the upload boundary: one multipart upload per
// request, answered with a live stream of transcription lifecycle events
// over SSE or WebSocket. Size and extension constraints are enforced here,
// before the pipeline runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/scribestream/internal/config"
	"github.com/alnah/scribestream/internal/metrics"
	"github.com/alnah/scribestream/internal/session"
	"github.com/alnah/scribestream/internal/transcribe"
)

// Server owns the Fiber application and the optional metrics listener.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	log     *slog.Logger
	m       *metrics.Metrics
	client  transcribe.Client
	waiter  session.Waiter
	baseCtx context.Context
}

// Option configures a Server.
type Option func(*Server)

// WithClient sets the shared provider client. A nil client is allowed: every
// session then fails with the missing-credential error.
func WithClient(c transcribe.Client) Option {
	return func(s *Server) {
		s.client = c
	}
}

// WithMetrics attaches pipeline instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.m = m
	}
}

// WithWaiter substitutes the sessions' inter-chunk wait (tests).
func WithWaiter(w session.Waiter) Option {
	return func(s *Server) {
		s.waiter = w
	}
}

// New builds the server and its routes.
func New(cfg config.Config, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName: "scribestream",
		// Multipart overhead on top of the configured audio cap.
		BodyLimit:             int(cfg.Server.MaxUploadBytes()) + 1024*1024,
		DisableStartupMessage: true,
	})
	s.routes()
	return s
}

// App returns the Fiber application, exposed for handler tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) routes() {
	s.app.Get("/", s.handleRoot)
	s.app.Get("/healthz", s.handleHealth)
	s.app.Post("/v1/transcriptions", s.handleTranscribe)

	s.app.Use("/v1/transcriptions/ws", requireWebSocketUpgrade)
	s.app.Get("/v1/transcriptions/ws", s.websocketHandler())
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "scribestream",
		"endpoints": fiber.Map{
			"POST /v1/transcriptions":   "multipart upload, SSE event stream response",
			"GET /v1/transcriptions/ws": "websocket upload + event stream",
			"GET /healthz":              "liveness",
		},
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// sessionOptions builds the per-session configuration shared by both
// transports.
func (s *Server) sessionOptions() []session.Option {
	opts := []session.Option{
		session.WithLogger(s.log),
		session.WithMetrics(s.m),
		session.WithInterChunkDelay(s.cfg.Transcription.InterChunkDelay()),
	}
	if s.waiter != nil {
		opts = append(opts, session.WithWaiter(s.waiter))
	}
	return opts
}

// Run serves the API and, when enabled, the Prometheus listener until ctx is
// cancelled, then shuts both down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	g, ctx := errgroup.WithContext(ctx)

	apiAddr := fmt.Sprintf("%s:%d", s.cfg.Server.Address, s.cfg.Server.Port)
	g.Go(func() error {
		s.log.Info("api listening", "addr", apiAddr)
		return s.app.Listen(apiAddr)
	})

	var metricsSrv *http.Server
	if s.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", s.cfg.Metrics.Address, s.cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			s.log.Info("metrics listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return s.app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
