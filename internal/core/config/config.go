package config

import (
	"fmt"
	"time"

	"github.com/minhpq/funnel/internal/core/domain"
	redisclient "github.com/minhpq/funnel/internal/infra/redis"
	"github.com/minhpq/funnel/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Feeds    []FeedConfig       `yaml:"feeds"`
	Journal  JournalConfig      `yaml:"journal"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// JournalConfig selects where recovered faults are recorded.
type JournalConfig struct {
	Backend string `yaml:"backend"` // memory, redis, postgres
	Limit   int    `yaml:"limit"`   // memory backend retention cap
	TTL     string `yaml:"ttl"`     // redis entry expiry, e.g. "24h", empty = keep forever
}

// FeedConfig holds settings for a single flatten feed.
type FeedConfig struct {
	Name       string   `yaml:"name"`
	Inputs     []string `yaml:"inputs"`
	Mapper     string   `yaml:"mapper"`      // e.g., "lines", "chunks"
	ChunkSize  int      `yaml:"chunk_size"`  // chunks mapper only, 0 = default
	OnError    string   `yaml:"on_error"`    // abort, abandon, resume, skip
	Substitute string   `yaml:"substitute"`  // abandon/resume replacement value
	Sink       string   `yaml:"sink"`        // stdout, file, log, memory, postgres, redis
	SinkTarget string   `yaml:"sink_target"` // file path, table, or key prefix
	Timeout    string   `yaml:"timeout"`     // per-inner deadline, e.g. "5s", empty = none
	Retry      bool     `yaml:"retry"`       // retry failed inner opens with backoff
	Retention  string   `yaml:"retention"`   // postgres row retention, e.g. "168h", empty = keep forever
}

// Job resolves the raw feed settings into a validated work order.
func (f FeedConfig) Job() (domain.FeedJob, error) {
	if f.Name == "" {
		return domain.FeedJob{}, fmt.Errorf("feed name is required")
	}

	job := domain.FeedJob{
		Name:       f.Name,
		Inputs:     f.Inputs,
		ChunkSize:  f.ChunkSize,
		Substitute: f.Substitute,
		SinkTarget: f.SinkTarget,
		Retry:      f.Retry,
	}

	switch kind := domain.MapperKind(f.Mapper); kind {
	case domain.MapperChunks, domain.MapperLines:
		job.Mapper = kind
	default:
		return domain.FeedJob{}, fmt.Errorf("feed %s: unknown mapper %q", f.Name, f.Mapper)
	}

	switch kind := domain.PolicyKind(f.OnError); kind {
	case domain.PolicyAbort, domain.PolicyAbandon, domain.PolicyResume, domain.PolicySkip:
		job.Policy = kind
	default:
		return domain.FeedJob{}, fmt.Errorf("feed %s: unknown on_error %q", f.Name, f.OnError)
	}

	switch kind := domain.SinkKind(f.Sink); kind {
	case domain.SinkStdout, domain.SinkFile, domain.SinkLog,
		domain.SinkMemory, domain.SinkPostgres, domain.SinkRedis:
		job.Sink = kind
	default:
		return domain.FeedJob{}, fmt.Errorf("feed %s: unknown sink %q", f.Name, f.Sink)
	}

	if job.Sink == domain.SinkFile && job.SinkTarget == "" {
		return domain.FeedJob{}, fmt.Errorf("feed %s: file sink requires sink_target", f.Name)
	}

	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return domain.FeedJob{}, fmt.Errorf("feed %s: invalid timeout: %w", f.Name, err)
		}
		job.Timeout = d
	}

	if f.Retention != "" {
		d, err := time.ParseDuration(f.Retention)
		if err != nil {
			return domain.FeedJob{}, fmt.Errorf("feed %s: invalid retention: %w", f.Name, err)
		}
		job.Retention = d
	}

	return job, nil
}

// Jobs resolves every configured feed, failing on the first invalid one.
func (c *AppConfig) Jobs() ([]domain.FeedJob, error) {
	jobs := make([]domain.FeedJob, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		job, err := f.Job()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// JournalTTL parses the configured journal entry expiry.
func (c *AppConfig) JournalTTL() (time.Duration, error) {
	if c.Journal.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Journal.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid journal ttl: %w", err)
	}
	return d, nil
}
