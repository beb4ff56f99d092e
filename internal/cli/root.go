// Package cli wires the funnel commands.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/minhpq/funnel/internal/control"
	"github.com/minhpq/funnel/internal/core/config"
	"github.com/minhpq/funnel/internal/core/domain"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Funnel sequential flattening service",
	Long: `Funnel flattens nested streams strictly in order: configured feeds open
their inputs one at a time, a policy rules every fault, and the flat
output drains into a sink.`,
	Run: runFeeds,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func initLogging(level string) {
	slogLevel := slog.LevelInfo
	if isDebug || level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

func buildControlConfig(cfg *config.AppConfig) (control.Config, error) {
	jobs, err := cfg.Jobs()
	if err != nil {
		return control.Config{}, err
	}
	ttl, err := cfg.JournalTTL()
	if err != nil {
		return control.Config{}, err
	}
	return control.Config{
		Port:           cfg.Server.Port,
		Jobs:           jobs,
		JournalBackend: cfg.Journal.Backend,
		JournalLimit:   cfg.Journal.Limit,
		JournalTTL:     ttl,
		Redis:          cfg.Redis,
		Database:       cfg.Database,
	}, nil
}

func runFeeds(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	initLogging(cfg.Logging.Level)

	controlCfg, err := buildControlConfig(cfg)
	if err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Initialize Runner
	app, err := control.NewRunner(controlCfg)
	if err != nil {
		slog.Error("Failed to initialize Runner", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start Runner", "error", err)
		os.Exit(1)
	}

	slog.Info("Runner started", "config", cfgPath, "feeds", len(controlCfg.Jobs))

	failed := false
	select {
	case <-app.Done():
		for _, report := range app.Reports() {
			if report.Outcome != domain.OutcomeCompleted {
				failed = true
			}
		}
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		cancel()
		<-app.Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	if failed {
		os.Exit(1)
	}
}
