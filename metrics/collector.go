package metrics

// Collector wraps metrics and provides helper methods with pre-filled labels.
type Collector struct {
	project string
}

// NewCollector creates a new Collector for the given project.
func NewCollector(project string) *Collector {
	return &Collector{project: project}
}

// IncMigrationsApplied increments the applied migrations counter for a status.
func (c *Collector) IncMigrationsApplied(status string) {
	MigrationsAppliedTotal.WithLabelValues(c.project, status).Inc()
}

// ObserveMigrationDuration records a migration execution duration observation.
func (c *Collector) ObserveMigrationDuration(seconds float64) {
	MigrationDuration.WithLabelValues(c.project).Observe(seconds)
}

// SetPendingMigrations sets the pending migrations gauge.
func (c *Collector) SetPendingMigrations(count int) {
	PendingMigrations.WithLabelValues(c.project).Set(float64(count))
}

// IncArtifactsGenerated increments the generated artifacts counter.
func (c *Collector) IncArtifactsGenerated(dialect, kind string) {
	ArtifactsGeneratedTotal.WithLabelValues(c.project, dialect, kind).Inc()
}

// SetChangedTables sets the changed tables gauge.
func (c *Collector) SetChangedTables(count int) {
	ChangedTables.WithLabelValues(c.project).Set(float64(count))
}

// IncSeedRuns increments the seed runs counter for a status.
func (c *Collector) IncSeedRuns(status string) {
	SeedRunsTotal.WithLabelValues(c.project, status).Inc()
}
