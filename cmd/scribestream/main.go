package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/alnah/scribestream/internal/config"
	"github.com/alnah/scribestream/internal/metrics"
	"github.com/alnah/scribestream/internal/server"
	"github.com/alnah/scribestream/internal/transcribe"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var configPath string

	rootCmd := &cobra.Command{
		Use:     "scribestream",
		Short:   "Streaming chunked audio transcription service",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to yaml config file")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Logging)
	slog.SetDefault(log)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	opts := []server.Option{
		server.WithMetrics(m),
	}

	// No API key means the service still starts and serves health checks;
	// transcription sessions fail individually with a credential error.
	if key := config.APIKey(); key != "" {
		client := transcribe.NewOpenAIClient(openai.NewClient(key),
			transcribe.WithModels(cfg.Transcription.Models),
			transcribe.WithAttempts(cfg.Transcription.Attempts),
			transcribe.WithBackoff(cfg.Transcription.Backoff()),
			transcribe.WithMinPayloadBytes(cfg.Transcription.MinChunkBytes),
			transcribe.WithObserver(m.RecordProviderCall, m.RecordProviderRetry),
		)
		opts = append(opts, server.WithClient(client))
	} else {
		log.Warn("no provider credential configured", "env", config.EnvAPIKey)
	}

	srv := server.New(cfg, log, opts...)
	log.Info("starting", "version", version, "commit", commit)
	return srv.Run(ctx)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
