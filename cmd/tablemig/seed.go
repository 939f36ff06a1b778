package main

import (
	"fmt"
	"strings"

	"github.com/getpup/tablemig/seeder"
)

// SeedCommand runs the seed data of one table, or of all tables.
type SeedCommand struct {
	baseCommand

	all bool

	flagTable string
}

func (c *SeedCommand) Synopsis() string {
	if c.all {
		return "Load the seed data of every table"
	}
	return "Load the seed data of a table"
}

func (c *SeedCommand) Help() string {
	if c.all {
		return strings.TrimSpace(`
Usage: tablemig seed:all [options]

  Execute the current data.sql of every table, ordered by requirements.
  Seeding is not recorded in the migration ledger.
` + globalOptions)
	}
	return strings.TrimSpace(`
Usage: tablemig seed -t <table> [options]

  Execute the current data.sql of one table. Seeding is not recorded in the
  migration ledger.

Options:

  -t, --table=<name>  Table to seed (required).
` + globalOptions)
}

func (c *SeedCommand) Run(args []string) int {
	name := "seed"
	if c.all {
		name = "seed:all"
	}
	fs := c.flagSet(name)
	if !c.all {
		fs.StringVar(&c.flagTable, "table", "", "")
		fs.StringVar(&c.flagTable, "t", "", "")
	}
	if !c.parse(fs, args) {
		return 1
	}
	if !c.all && c.flagTable == "" {
		c.ui.Error("Missing required option -t <table>")
		return 1
	}

	ctx, cancel := c.signalContext()
	defer cancel()

	env, err := c.setup(ctx)
	if err != nil {
		return c.fail(err)
	}
	defer c.finish(env)

	if err := c.requireMigrations(env); err != nil {
		return c.fail(err)
	}

	db, err := c.openDatabase(ctx, env)
	if err != nil {
		return c.fail(err)
	}
	defer db.db.Close()

	s := seeder.New(seeder.Config{
		MigrationsDir: env.migDir,
		Dialect:       db.dialect,
		Executor:      db.executor(env),
		Logger:        env.logger,
		Metrics:       env.metrics,
	})

	result, err := s.Seed(ctx, c.flagTable)
	if err != nil {
		return c.fail(err)
	}

	if len(result.Tables) == 0 {
		c.ui.Output("Nothing to seed.")
		return 0
	}
	c.ui.Output(fmt.Sprintf("Successfully seeded: %s", strings.Join(result.Tables, ", ")))
	return 0
}
