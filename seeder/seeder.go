// Package seeder loads the current seed data of tables into a database.
// Seeding bypasses the migration ledger.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/delta"
	"github.com/getpup/tablemig/executor"
	"github.com/getpup/tablemig/logging"
	"github.com/getpup/tablemig/metrics"
	"github.com/getpup/tablemig/pkg/migrations"
	"github.com/getpup/tablemig/resolver"
	"github.com/getpup/tablemig/source"
)

// ErrTableNotFound indicates the requested table has no directory under src/.
var ErrTableNotFound = errors.New("table not found")

// Config configures the Seeder.
type Config struct {
	// MigrationsDir is the migrations root containing src/ (required).
	MigrationsDir string

	// Dialect selects the SQL template (default: postgres).
	Dialect tablemig.Dialect

	// Executor runs the seed script (required).
	Executor executor.Executor

	// Logger is for observability (optional).
	Logger es.Logger

	// Metrics records seed runs (optional).
	Metrics *metrics.Collector

	// Now names the seed unit (default: time.Now).
	Now func() time.Time
}

// Result describes a seed run.
type Result struct {
	// Tables lists the seeded tables in execution order.
	Tables []string

	// Body is the script that was executed, empty when nothing was seeded.
	Body string
}

// Seeder executes data.sql files.
type Seeder struct {
	config Config
}

// New creates a new Seeder with the given configuration.
func New(cfg Config) *Seeder {
	if cfg.Dialect == "" {
		cfg.Dialect = tablemig.DialectPostgres
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Seeder{config: cfg}
}

// Seed runs the seed data of table, or of every table when table is "".
// Tables are ordered by their requirements and seeded in a single script.
func (s *Seeder) Seed(ctx context.Context, table string) (*Result, error) {
	logger := logging.WithFields(s.config.Logger, "run_id", uuid.NewString())

	tables, err := source.NewLoader(source.Config{
		MigrationsDir: s.config.MigrationsDir,
		Logger:        logger,
	}).Load(ctx, "")
	if err != nil {
		return nil, err
	}

	tables, err = selectTables(tables, table)
	if err != nil {
		return nil, err
	}

	for i := range tables {
		t := &tables[i]
		t.Requires = delta.Union(delta.ExtractRequires(t.CurrentSeed), delta.ExtractRequires(t.CurrentSchema))
		t.SeedDelta = t.CurrentSeed
	}

	ordered, err := resolver.Resolve(tables)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(ordered) == 0 {
		if logger != nil {
			logger.Info(ctx, "nothing to seed")
		}
		return result, nil
	}

	_, seed := migrations.JoinDeltas(ordered)
	name := fmt.Sprintf("seeder_%d", s.config.Now().UnixMilli())
	body, err := migrations.RenderSQL(s.config.Dialect, "", seed, name)
	if err != nil {
		return nil, err
	}

	for _, t := range ordered {
		result.Tables = append(result.Tables, t.Name)
	}
	result.Body = body

	if logger != nil {
		logger.Info(ctx, "seeding", "tables", result.Tables)
		logger.Debug(ctx, "seed script", "body", body)
	}

	if err := s.config.Executor.Exec(ctx, body); err != nil {
		s.record(tablemig.StatusError)
		return result, fmt.Errorf("failed to seed: %w", err)
	}
	s.record(tablemig.StatusOK)

	if logger != nil {
		logger.Info(ctx, "successfully seeded", "tables", len(result.Tables))
	}
	return result, nil
}

func (s *Seeder) record(status tablemig.Status) {
	if s.config.Metrics != nil {
		s.config.Metrics.IncSeedRuns(status.String())
	}
}

func selectTables(tables []tablemig.TableChangeSet, name string) ([]tablemig.TableChangeSet, error) {
	if name == "" {
		return tables, nil
	}
	for _, t := range tables {
		if t.Name == name {
			return []tablemig.TableChangeSet{t}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
}
