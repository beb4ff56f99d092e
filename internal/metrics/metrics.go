package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsForwarded tracks data events handed downstream per feed
	EventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_events_forwarded_total",
			Help: "Total number of data events forwarded downstream",
		},
		[]string{"feed"},
	)

	// ErrorsRecovered tracks faults the policy recovered from
	ErrorsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_errors_recovered_total",
			Help: "Total number of faults recovered by the policy",
		},
		[]string{"feed", "level", "decision"},
	)

	// RunsTotal tracks finished runs per feed and outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_runs_total",
			Help: "Total number of finished runs",
		},
		[]string{"feed", "outcome"},
	)

	// ActiveInnerStreams tracks how many inner streams are open per feed.
	// The flattening discipline keeps this at most 1.
	ActiveInnerStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "funnel_active_inner_streams",
			Help: "Number of currently open inner streams",
		},
		[]string{"feed"},
	)

	// DrainDuration tracks how long a full drain takes
	DrainDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_drain_duration_seconds",
			Help:    "Wall time of a full run drain in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	// JournalEntries tracks recovered faults persisted to the journal
	JournalEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_journal_entries_total",
			Help: "Total number of journal entries recorded",
		},
		[]string{"feed", "backend"},
	)

	// DBConnectionPoolUsage tracks database connection pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnel_db_connection_pool_usage_percent",
			Help: "Percentage of database connections in use",
		},
	)
)
