// Command tablemig generates and applies database migrations from per-table
// SQL definitions kept under version control.
//
// Usage:
//
//	tablemig init:schema -t app -r app_type
//	tablemig init:seed -t app
//	tablemig init:migration --type sql --dialect postgres
//	tablemig migrate [--genesis-version 1.0.0]
//	tablemig seed -t app
//	tablemig seed:all
//	tablemig status [--limit 2]
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/cli"

	"github.com/getpup/tablemig/scaffold"
)

const appName = "tablemig"

func main() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the CLI and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      stdout,
		ErrorWriter: stderr,
	}

	c := &cli.CLI{
		Name:       appName,
		Args:       args,
		Commands:   commands(ui),
		HelpFunc:   cli.BasicHelpFunc(appName),
		HelpWriter: stderr,
	}

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintf(stderr, "Error executing CLI: %s\n", err.Error())
		return 1
	}
	return exitCode
}

func commands(ui cli.Ui) map[string]cli.CommandFactory {
	base := func() baseCommand { return baseCommand{ui: ui} }

	return map[string]cli.CommandFactory{
		"init:schema": func() (cli.Command, error) {
			return &InitTableCommand{baseCommand: base(), subject: scaffold.SubjectSchema}, nil
		},
		"init:seed": func() (cli.Command, error) {
			return &InitTableCommand{baseCommand: base(), subject: scaffold.SubjectSeed}, nil
		},
		"init:migration": func() (cli.Command, error) {
			return &InitMigrationCommand{baseCommand: base()}, nil
		},
		"migrate": func() (cli.Command, error) {
			return &MigrateCommand{baseCommand: base()}, nil
		},
		"seed": func() (cli.Command, error) {
			return &SeedCommand{baseCommand: base()}, nil
		},
		"seed:all": func() (cli.Command, error) {
			return &SeedCommand{baseCommand: base(), all: true}, nil
		},
		"status": func() (cli.Command, error) {
			return &StatusCommand{baseCommand: base()}, nil
		},
	}
}
