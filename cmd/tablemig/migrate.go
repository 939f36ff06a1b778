package main

import (
	"fmt"
	"strings"

	"github.com/getpup/tablemig/runner"
)

// MigrateCommand applies pending migrations.
type MigrateCommand struct {
	baseCommand

	flagGenesisVersion string
}

func (c *MigrateCommand) Synopsis() string {
	return "Apply pending migrations"
}

func (c *MigrateCommand) Help() string {
	helpText := `
Usage: tablemig migrate [options]

  Apply every migration above the version recorded in the ledger, in
  version order. A failed migration is recorded with its error and stops
  the run. An unfinished (pending) migration blocks further runs until it
  is resolved.

Options:

  --genesis-version=<semver>  Declare the version an untracked database is
                              already at. Only allowed on an empty ledger.
` + globalOptions
	return strings.TrimSpace(helpText)
}

func (c *MigrateCommand) Run(args []string) int {
	fs := c.flagSet("migrate")
	fs.StringVar(&c.flagGenesisVersion, "genesis-version", "", "")
	if !c.parse(fs, args) {
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

	ledger, err := db.ledger(env.config.Database.LedgerTable)
	if err != nil {
		return c.fail(err)
	}

	r := runner.New(runner.Config{
		Store:    ledger,
		Executor: db.executor(env),
		Dir:      env.migDir,
		Logger:   env.logger,
		Metrics:  env.metrics,
	})

	result, err := r.Migrate(ctx, runner.MigrateOptions{GenesisVersion: c.flagGenesisVersion})
	for _, v := range result.Applied {
		c.ui.Output(fmt.Sprintf("%s migrated successfully.", v))
	}
	if err != nil {
		return c.fail(err)
	}

	if len(result.Applied) == 0 {
		c.ui.Output("Nothing to migrate.")
	} else {
		c.ui.Output("All done.")
	}
	return 0
}
