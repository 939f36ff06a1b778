package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/runner"
)

const defaultStatusLimit = 2

// StatusCommand prints the latest ledger entries.
type StatusCommand struct {
	baseCommand

	flagLimit int
}

func (c *StatusCommand) Synopsis() string {
	return "Show the latest migration attempts"
}

func (c *StatusCommand) Help() string {
	helpText := `
Usage: tablemig status [options]

  Print the most recent migration ledger entries, newest first.

Options:

  --limit=<n>  Number of entries to show; 0 shows all (default: 2).
` + globalOptions
	return strings.TrimSpace(helpText)
}

func (c *StatusCommand) Run(args []string) int {
	fs := c.flagSet("status")
	fs.IntVar(&c.flagLimit, "limit", defaultStatusLimit, "")
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

	db, err := c.openDatabase(ctx, env)
	if err != nil {
		return c.fail(err)
	}
	defer db.db.Close()

	ledger, err := db.ledger(env.config.Database.LedgerTable)
	if err != nil {
		return c.fail(err)
	}

	r := runner.New(runner.Config{Store: ledger, Logger: env.logger})
	entries, err := r.Status(ctx, c.flagLimit)
	if err != nil {
		return c.fail(err)
	}

	var out bytes.Buffer
	renderStatus(&out, entries)
	c.ui.Output(strings.TrimRight(out.String(), "\n"))
	return 0
}

// renderStatus writes entries as an aligned table.
func renderStatus(w io.Writer, entries []tablemig.LedgerEntry) {
	tw := tabwriter.NewWriter(w, 0, 2, 3, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATUS\tCREATED AT\tNOTE")
	for _, entry := range entries {
		note := ""
		if entry.Note != nil {
			note = *entry.Note
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.Version, entry.Status, entry.CreatedAt.Format(time.RFC3339), note)
	}
	tw.Flush()
}
