package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/minhpq/funnel/internal/core/config"
	"github.com/minhpq/funnel/internal/infra/storage/postgres"
)

var purgeCmd = &cobra.Command{
	Use:   "purge [feed]",
	Short: "Delete journaled faults and stored output for a feed",
	Args:  cobra.ExactArgs(1),
	Run:   runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	feed := args[0]

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	// Direct SQL; the repos only append.
	res, err := db.ExecContext(ctx, "DELETE FROM journal_entries WHERE feed = $1", feed)
	if err != nil {
		slog.Error("Failed to purge journal entries", "error", err)
		os.Exit(1)
	}
	entries, _ := res.RowsAffected()

	res, err = db.ExecContext(ctx, "DELETE FROM sink_chunks WHERE feed = $1", feed)
	if err != nil {
		slog.Error("Failed to purge stored chunks", "error", err)
		os.Exit(1)
	}
	chunks, _ := res.RowsAffected()

	fmt.Printf("Purged %d journal entries and %d stored chunks for %s\n", entries, chunks, feed)
}
