package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lcalzada-xor/netrack/internal/app"
	"github.com/lcalzada-xor/netrack/internal/config"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

var version = "dev"

func main() {
	// Setup Structured Logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "netrack",
		Short:        "Passive 802.11 network tracker",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newCacheCmd(), newHashPasswordCmd(), newHealthCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture frames, track networks and serve consumers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	if cfg.Debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Initialize Tracing, spans only go to stdout in debug mode
	var spans io.Writer = io.Discard
	if cfg.Debug {
		spans = os.Stdout
	}
	shutdownTracer, err := telemetry.InitTracer(spans, version)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("netrack starting...", "version", version)
	if err := application.Run(ctx); err != nil {
		slog.Error("Application error", "error", err)
		return err
	}
	return nil
}
