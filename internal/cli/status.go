package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhpq/funnel/internal/core/config"
	redisclient "github.com/minhpq/funnel/internal/infra/redis"
	"github.com/minhpq/funnel/internal/infra/storage/postgres"
	"github.com/minhpq/funnel/internal/journal"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recently journaled faults",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of entries to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Journal.Backend == "" || cfg.Journal.Backend == "memory" {
		fmt.Println("The memory journal lives and dies with the run; configure a redis or postgres journal to inspect it here.")
		return
	}

	ctx := context.Background()
	j, err := openJournal(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open journal", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = j.Close()
	}()

	entries, err := j.Recent(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to read journal", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "FEED\tLEVEL\tDECISION\tCAUSE\tRECORDED")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Feed, e.Level, e.Decision, e.Cause, e.At.Format(time.RFC3339))
	}
	_ = w.Flush()
}

func openJournal(ctx context.Context, cfg *config.AppConfig) (journal.Journal, error) {
	switch cfg.Journal.Backend {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &closingJournal{Journal: postgres.NewJournalRepo(db), conn: db}, nil
	case "redis":
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		ttl, err := cfg.JournalTTL()
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &closingJournal{Journal: redisclient.NewJournalRepo(client, ttl), conn: client}, nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}
}

// closingJournal closes the backing connection along with the journal.
type closingJournal struct {
	journal.Journal
	conn io.Closer
}

func (c *closingJournal) Close() error {
	err := c.Journal.Close()
	if cerr := c.conn.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}
