package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/minhpq/funnel/internal/core/domain"
	"github.com/minhpq/funnel/internal/core/worker"
	"github.com/minhpq/funnel/internal/flatten"
	"github.com/minhpq/funnel/internal/health"
	redisclient "github.com/minhpq/funnel/internal/infra/redis"
	"github.com/minhpq/funnel/internal/infra/storage/postgres"
	"github.com/minhpq/funnel/internal/journal"
	"github.com/minhpq/funnel/internal/metrics"
	"github.com/minhpq/funnel/internal/policy"
	"github.com/minhpq/funnel/internal/sink"
	"github.com/minhpq/funnel/internal/source"
)

// Config holds the application configuration.
type Config struct {
	Port           int
	Jobs           []domain.FeedJob
	JournalBackend string
	JournalLimit   int
	JournalTTL     time.Duration
	Redis          redisclient.Config
	Database       postgres.Config
	MigrationsDir  string
}

// Runner is the main application struct that manages the feed lifecycle.
type Runner struct {
	cfg          Config
	jobs         []domain.FeedJob
	journal      journal.Journal
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	sinkDB       *postgres.SinkDB
	redisClient  *redisclient.Client
	pruners      []*worker.Pruner
	log          *slog.Logger
	done         chan struct{}

	mu          sync.Mutex
	memorySinks map[string]*sink.MemorySink
	reports     []domain.RunReport
}

// NewRunner creates a new Runner instance with all dependencies initialized.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}

	r := &Runner{
		cfg:         cfg,
		jobs:        cfg.Jobs,
		log:         slog.Default(),
		done:        make(chan struct{}),
		memorySinks: make(map[string]*sink.MemorySink),
	}

	// 1. Initialize PostgreSQL when the journal or a sink needs it
	needsSinkDB := false
	for _, job := range cfg.Jobs {
		if job.Sink == domain.SinkPostgres {
			needsSinkDB = true
		}
	}

	if needsSinkDB || cfg.JournalBackend == "postgres" {
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("postgres requested but database.url is not set")
		}
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		r.db = db

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		if needsSinkDB {
			sinkDB, err := postgres.NewSinkDB(cfg.Database.URL)
			if err != nil {
				return nil, fmt.Errorf("failed to init sink db: %w", err)
			}
			r.sinkDB = sinkDB
		}
		slog.Info("Using PostgreSQL storage")
	}

	// 2. Initialize Redis when the journal or a sink needs it
	needsRedis := cfg.JournalBackend == "redis"
	for _, job := range cfg.Jobs {
		if job.Sink == domain.SinkRedis {
			needsRedis = true
		}
	}
	if needsRedis {
		if cfg.Redis.URL == "" {
			return nil, fmt.Errorf("redis requested but redis.url is not set")
		}
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		r.redisClient = client
		slog.Info("Using Redis storage")
	}

	// 3. Initialize Journal backend
	var pgJournal *postgres.JournalRepo
	switch cfg.JournalBackend {
	case "", "memory":
		r.journal = journal.NewMemoryJournal(cfg.JournalLimit)
	case "redis":
		r.journal = redisclient.NewJournalRepo(r.redisClient, cfg.JournalTTL)
	case "postgres":
		pgJournal = postgres.NewJournalRepo(r.db)
		r.journal = pgJournal
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.JournalBackend)
	}

	// 4. Retention pruners for feeds with postgres-backed rows
	for _, job := range cfg.Jobs {
		if job.Retention <= 0 {
			continue
		}
		var jstore worker.JournalStore
		if pgJournal != nil {
			jstore = pgJournal
		}
		var cstore worker.ChunkStore
		if r.sinkDB != nil && job.Sink == domain.SinkPostgres {
			cstore = r.sinkDB
		}
		if jstore == nil && cstore == nil {
			slog.Warn("Retention configured without postgres storage", "feed", job.Name)
			continue
		}
		r.pruners = append(r.pruners, worker.NewPruner(job.Name, job.Retention, jstore, cstore))
	}

	// 5. Initialize Health Monitor
	feedNames := make([]string, 0, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		feedNames = append(feedNames, job.Name)
	}
	r.healthMon = health.NewMonitor(feedNames)
	r.healthServer = health.NewServer(r.healthMon, cfg.Port)

	return r, nil
}

// Run drains every feed strictly in order, one at a time. Feeds are
// independent: one failing does not stop the next. The joined failures
// come back as the return value; per-feed details stay in Reports.
func (r *Runner) Run(ctx context.Context) error {
	var failures []error

	for _, job := range r.jobs {
		report := r.runFeed(ctx, job)

		r.mu.Lock()
		r.reports = append(r.reports, report)
		r.mu.Unlock()

		r.healthMon.RunFinished(report)
		metrics.RunsTotal.WithLabelValues(report.Feed, string(report.Outcome)).Inc()

		switch report.Outcome {
		case domain.OutcomeCompleted:
			r.log.Info("Feed completed",
				"feed", report.Feed,
				"events", report.Events,
				"recovered", report.Recovered,
				"duration", report.Duration())
		case domain.OutcomeFailed:
			r.log.Error("Feed failed", "feed", report.Feed, "error", report.Err)
			failures = append(failures, fmt.Errorf("feed %s: %w", report.Feed, report.Err))
		case domain.OutcomeCancelled:
			r.log.Warn("Feed cancelled", "feed", report.Feed, "events", report.Events)
			failures = append(failures, fmt.Errorf("feed %s: %w", report.Feed, report.Err))
		}

		if report.Outcome == domain.OutcomeCancelled {
			// The context is gone; feeds that never started stay pending.
			break
		}
	}

	return errors.Join(failures...)
}

func (r *Runner) runFeed(ctx context.Context, job domain.FeedJob) domain.RunReport {
	runID := domain.NewRunID()
	r.log.Info("Starting feed",
		"feed", job.Name,
		"run", runID,
		"inputs", len(job.Inputs),
		"policy", job.Policy,
		"sink", job.Sink)
	r.healthMon.RunStarted(job.Name)

	report := domain.RunReport{
		Run:     runID,
		Feed:    job.Name,
		Started: time.Now(),
	}

	dst, err := r.buildSink(ctx, job, runID)
	if err != nil {
		report.Outcome = domain.OutcomeFailed
		report.Err = fmt.Errorf("failed to build sink: %w", err)
		report.Finished = time.Now()
		return report
	}

	counter := &countingSink{dst: dst, feed: job.Name}
	recoveries := &recoveryCounter{}

	switch job.Mapper {
	case domain.MapperChunks:
		mapper := source.FileChunks(job.ChunkSize)
		if job.Retry {
			mapper = source.WithRetry(mapper, source.DefaultRetryConfig)
		}
		report.Outcome, report.Err = drainFeed(ctx, r, job, runID,
			mapper, bytesPolicy(job),
			func(p []byte) []byte { return p },
			counter, recoveries)
	case domain.MapperLines:
		mapper := source.FileLines()
		if job.Retry {
			mapper = source.WithRetry(mapper, source.DefaultRetryConfig)
		}
		report.Outcome, report.Err = drainFeed(ctx, r, job, runID,
			mapper, stringPolicy(job),
			func(s string) []byte { return append([]byte(s), '\n') },
			counter, recoveries)
	default:
		_ = dst.Close()
		report.Outcome = domain.OutcomeFailed
		report.Err = fmt.Errorf("unknown mapper %q", job.Mapper)
	}

	report.Events = counter.n
	report.Recovered = recoveries.n.Load()
	report.Finished = time.Now()
	return report
}

// drainFeed wires one feed's flattener to its sink and runs it dry.
func drainFeed[I any](
	ctx context.Context,
	r *Runner,
	job domain.FeedJob,
	runID domain.RunID,
	mapper flatten.Mapper[string, I],
	pol policy.Policy[I],
	encode func(I) []byte,
	dst sink.Sink,
	recoveries *recoveryCounter,
) (domain.Outcome, error) {
	opts := []flatten.Option{
		flatten.WithObserver(flatten.NewLogObserver(r.log)),
		flatten.WithObserver(metrics.NewRunObserver(job.Name)),
		flatten.WithObserver(journal.NewObserver(ctx, r.journal, runID, job.Name)),
		flatten.WithObserver(recoveries),
	}
	if job.Timeout > 0 {
		opts = append(opts, flatten.WithTimeout(job.Timeout))
	}

	fl := flatten.New(source.Paths(job.Inputs...), mapper, pol, opts...)

	start := time.Now()
	err := sink.Drain(ctx, fl, encode, dst)
	metrics.DrainDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return domain.OutcomeCompleted, nil
	case fl.State() == flatten.StateCancelled:
		return domain.OutcomeCancelled, err
	default:
		return domain.OutcomeFailed, err
	}
}

func (r *Runner) buildSink(ctx context.Context, job domain.FeedJob, runID domain.RunID) (sink.Sink, error) {
	switch job.Sink {
	case domain.SinkStdout:
		return sink.NewWriterSink(os.Stdout), nil
	case domain.SinkFile:
		return sink.NewFileSink(job.SinkTarget)
	case domain.SinkLog:
		return sink.NewLogSink(r.log.With("feed", job.Name)), nil
	case domain.SinkMemory:
		ms := sink.NewMemorySink()
		r.mu.Lock()
		r.memorySinks[job.Name] = ms
		r.mu.Unlock()
		return ms, nil
	case domain.SinkPostgres:
		return postgres.NewSink(ctx, r.sinkDB, job.Name, runID), nil
	case domain.SinkRedis:
		return redisclient.NewSink(ctx, r.redisClient, job.Name, runID, 0), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", job.Sink)
	}
}

func bytesPolicy(job domain.FeedJob) policy.Policy[[]byte] {
	switch job.Policy {
	case domain.PolicyAbandon:
		return policy.AbandonWith([]byte(job.Substitute))
	case domain.PolicyResume:
		return policy.ResumeWith([]byte(job.Substitute))
	case domain.PolicySkip:
		return policy.Skip[[]byte]()
	default:
		return policy.Abort[[]byte]()
	}
}

func stringPolicy(job domain.FeedJob) policy.Policy[string] {
	switch job.Policy {
	case domain.PolicyAbandon:
		return policy.AbandonWith(job.Substitute)
	case domain.PolicyResume:
		return policy.ResumeWith(job.Substitute)
	case domain.PolicySkip:
		return policy.Skip[string]()
	default:
		return policy.Abort[string]()
	}
}

// Start launches the health server and begins draining the feeds in the
// background. Done reports when every feed has finished.
func (r *Runner) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := r.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("Health server failed", "error", err)
		}
	}()

	// Start DB Metrics Collector
	if r.db != nil {
		r.db.StartMetricsCollector(ctx)
	}

	// Start Retention Pruners
	for _, p := range r.pruners {
		go p.Start(ctx)
	}

	// Drain feeds
	go func() {
		defer close(r.done)
		if err := r.Run(ctx); err != nil {
			r.log.Error("Run finished with failures", "error", err)
		}
	}()

	return nil
}

// Done closes once every feed has finished draining.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Stop shuts down the health server and releases shared backends.
func (r *Runner) Stop(ctx context.Context) error {
	r.log.Info("Stopping runner...")

	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.log.Warn("Failed to close journal", "error", err)
		}
	}

	// Close Redis
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if r.sinkDB != nil {
		if err := r.sinkDB.Close(); err != nil {
			r.log.Warn("Failed to close sink db", "error", err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.log.Warn("Failed to close db", "error", err)
		}
	}

	// Stop Health Server
	return r.healthServer.Stop(ctx)
}

// Reports returns the reports of every finished run, in feed order.
func (r *Runner) Reports() []domain.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RunReport, len(r.reports))
	copy(out, r.reports)
	return out
}

// MemoryOutput returns the in-memory sink of a feed configured with the
// memory sink, once its run has started.
func (r *Runner) MemoryOutput(feed string) (*sink.MemorySink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.memorySinks[feed]
	return ms, ok
}

// Journal exposes the runner's journal backend.
func (r *Runner) Journal() journal.Journal {
	return r.journal
}
