package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/minhpq/funnel/internal/control"
	"github.com/minhpq/funnel/internal/core/config"
	"github.com/minhpq/funnel/internal/core/domain"
)

var (
	catMapper     string
	catChunkSize  int
	catOnError    string
	catSubstitute string
	catTimeout    time.Duration
	catRetry      bool
)

var catCmd = &cobra.Command{
	Use:   "cat [files...]",
	Short: "Flatten files to stdout in strict order",
	Args:  cobra.MinimumNArgs(1),
	Run:   runCat,
}

func init() {
	catCmd.Flags().StringVar(&catMapper, "mapper", "chunks", "how files are read: chunks or lines")
	catCmd.Flags().IntVar(&catChunkSize, "chunk-size", 0, "chunk size in bytes (0 = default)")
	catCmd.Flags().StringVar(&catOnError, "on-error", "abort", "fault policy: abort, abandon, resume or skip")
	catCmd.Flags().StringVar(&catSubstitute, "substitute", "", "replacement value for abandon and resume")
	catCmd.Flags().DurationVar(&catTimeout, "timeout", 0, "per-file deadline (0 = none)")
	catCmd.Flags().BoolVar(&catRetry, "retry", false, "retry failed opens with backoff")
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) {
	// Keep stdout clean for the flattened output; logs go through tint
	// at warn level unless --debug asks for more.
	level := slog.LevelWarn
	if isDebug {
		level = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})

	fc := config.FeedConfig{
		Name:       "cat",
		Inputs:     args,
		Mapper:     catMapper,
		ChunkSize:  catChunkSize,
		OnError:    catOnError,
		Substitute: catSubstitute,
		Sink:       string(domain.SinkStdout),
	}
	job, err := fc.Job()
	if err != nil {
		slog.Error("Invalid flags", "error", err)
		os.Exit(1)
	}
	job.Timeout = catTimeout
	job.Retry = catRetry

	app, err := control.NewRunner(control.Config{Jobs: []domain.FeedJob{job}})
	if err != nil {
		slog.Error("Failed to initialize Runner", "error", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		slog.Error("Cat failed", "error", err)
		os.Exit(1)
	}
}
