package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MigrationsAppliedTotal tracks migration-apply attempts by outcome.
var MigrationsAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tablemig_migrations_applied_total",
		Help: "Total migration-apply attempts by status",
	},
	[]string{"project", "status"},
)

// MigrationDuration tracks the time spent executing one migration artifact.
var MigrationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tablemig_migration_duration_seconds",
		Help:    "Time spent executing a migration artifact",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"project"},
)

// PendingMigrations tracks the number of artifacts selected for the current run.
var PendingMigrations = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tablemig_pending_migrations",
		Help: "Migration artifacts above the current ledger version",
	},
	[]string{"project"},
)

// ArtifactsGeneratedTotal tracks generated migration artifacts.
var ArtifactsGeneratedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tablemig_artifacts_generated_total",
		Help: "Total migration artifacts generated",
	},
	[]string{"project", "dialect", "kind"},
)

// ChangedTables tracks the number of tables included in the last generated artifact.
var ChangedTables = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tablemig_changed_tables",
		Help: "Tables with changes in the last generated artifact",
	},
	[]string{"project"},
)

// SeedRunsTotal tracks seeding runs by outcome.
var SeedRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tablemig_seed_runs_total",
		Help: "Total seeding runs by status",
	},
	[]string{"project", "status"},
)
