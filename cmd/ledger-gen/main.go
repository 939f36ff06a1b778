// Command ledger-gen writes the DDL of the migration ledger table, for
// databases where tablemig is not allowed to create tables itself.
//
// Usage:
//
//	go run github.com/getpup/tablemig/cmd/ledger-gen -output db -filename ledger.sql
//
// Or with go generate:
//
//	//go:generate go run github.com/getpup/tablemig/cmd/ledger-gen -output db
//
// Generate the DDL for different database adapters:
//
//	go run github.com/getpup/tablemig/cmd/ledger-gen -adapter postgres -output db
//	go run github.com/getpup/tablemig/cmd/ledger-gen -adapter mysql -output db
//	go run github.com/getpup/tablemig/cmd/ledger-gen -adapter sqlite -output db
//
// Customize the table name:
//
//	go run github.com/getpup/tablemig/cmd/ledger-gen -table schema_ledger -output db
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/pkg/migrations"
	"github.com/getpup/tablemig/store/sqlstore"
)

func main() {
	var (
		adapter        = flag.String("adapter", "postgres", "Database adapter: postgres, mysql, or sqlite")
		outputFolder   = flag.String("output", ".", "Output folder for the DDL file")
		outputFilename = flag.String("filename", "", "Output filename (default: <table>_<adapter>.sql)")
		table          = flag.String("table", "migrations", "Name of the ledger table")
	)

	flag.Parse()

	dialect, err := tablemig.ParseDialect(*adapter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: unsupported adapter '%s'. Supported adapters are: postgres, mysql, sqlite\n", *adapter)
		os.Exit(1)
	}

	if err := migrations.ValidateIdentifier(*table, "table"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	config := sqlstore.TableConfig{Table: *table, Dialect: dialect}
	ddl, err := sqlstore.MigrationUp(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating ledger DDL: %v\n", err)
		os.Exit(1)
	}

	filename := *outputFilename
	if filename == "" {
		filename = fmt.Sprintf("%s_%s.sql", *table, dialect)
	}

	if err := os.MkdirAll(*outputFolder, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output folder: %v\n", err)
		os.Exit(1)
	}

	path := filepath.Join(*outputFolder, filename)
	if err := migrations.CreateExclusive(path, ddl+";\n"); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing ledger DDL: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s ledger DDL: %s\n", dialect, path)
}
