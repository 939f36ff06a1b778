package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/mitchellh/cli"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/config"
	"github.com/getpup/tablemig/executor"
	"github.com/getpup/tablemig/gitrepo"
	"github.com/getpup/tablemig/logging"
	"github.com/getpup/tablemig/metrics"
	"github.com/getpup/tablemig/scaffold"
	"github.com/getpup/tablemig/store/sqlstore"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const globalOptions = `
Global Options:

  --mig-dir=<dir>       Migrations directory relative to the project root.
  --config=<file>       Config file (default: <project root>/tablemig.yaml).
  -i, --interactive     Open created files in $EDITOR.
  -v, --verbose         Increase log verbosity; repeat for more.`

// baseCommand holds the options shared by every command.
type baseCommand struct {
	ui cli.Ui

	flagMigDir      string
	flagConfig      string
	flagInteractive bool
	flagVerbose     countFlag
}

// environment is what a command needs after setup.
type environment struct {
	root    string
	migDir  string
	config  *config.Config
	logger  *logging.Adapter
	metrics *metrics.Collector
}

func (c *baseCommand) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.flagMigDir, "mig-dir", "", "")
	fs.StringVar(&c.flagConfig, "config", "", "")
	fs.BoolVar(&c.flagInteractive, "interactive", false, "")
	fs.BoolVar(&c.flagInteractive, "i", false, "")
	fs.Var(&c.flagVerbose, "verbose", "")
	fs.Var(&c.flagVerbose, "v", "")
	return fs
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func (c *baseCommand) signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// setup locates the project root, loads the configuration and builds the logger.
// The project root is the enclosing git work tree, or the working directory
// outside of one.
func (c *baseCommand) setup(ctx context.Context) (*environment, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := gitrepo.FindRoot(ctx, cwd)
	if err != nil {
		root = cwd
	}

	configPath := c.flagConfig
	if configPath == "" {
		configPath = filepath.Join(root, config.DefaultFile)
	}

	cfg, err := config.NewLoader().WithConfigPath(configPath).Load()
	if err != nil {
		return nil, err
	}
	if c.flagMigDir != "" {
		cfg.MigDir = c.flagMigDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	if c.flagVerbose > 0 {
		level = logging.LevelFromVerbosity(int(c.flagVerbose))
	}
	zl, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	migDir := cfg.MigDir
	if !filepath.IsAbs(migDir) {
		migDir = filepath.Join(root, migDir)
	}

	return &environment{
		root:    root,
		migDir:  migDir,
		config:  cfg,
		logger:  logging.Adapt(zl),
		metrics: metrics.NewCollector(cfg.Metrics.Project),
	}, nil
}

// finish flushes the logger and writes the metrics textfile when configured.
func (c *baseCommand) finish(env *environment) {
	_ = env.logger.Sync()
	if env.config.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(env.config.Metrics.Textfile); err != nil {
		c.ui.Warn(fmt.Sprintf("Failed to write metrics: %s", err))
	}
}

// requireMigrations fails unless the migrations directory is scaffolded.
func (c *baseCommand) requireMigrations(env *environment) error {
	ok, err := scaffold.Inspect(env.migDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s doesn't have a valid migrations folder", env.root)
	}
	return nil
}

// database opens the configured database.
type database struct {
	db      *sql.DB
	dialect tablemig.Dialect
}

func (c *baseCommand) openDatabase(ctx context.Context, env *environment) (*database, error) {
	cfg := env.config.Database
	if cfg.DSN == "" {
		return nil, errors.New("database.dsn is not configured (set it in tablemig.yaml or TABLEMIG_DATABASE_DSN)")
	}

	dialect, err := tablemig.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	dsn, err := dataSourceName(dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &database{db: db, dialect: dialect}, nil
}

// dataSourceName enables DATETIME scanning for MySQL ledger timestamps.
func dataSourceName(dialect tablemig.Dialect, dsn string) (string, error) {
	if dialect != tablemig.DialectMySQL {
		return dsn, nil
	}
	mysqlConfig, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	mysqlConfig.ParseTime = true
	return mysqlConfig.FormatDSN(), nil
}

func (d *database) ledger(table string) (*sqlstore.Store, error) {
	return sqlstore.NewWithConfig(d.db, sqlstore.TableConfig{Table: table, Dialect: d.dialect})
}

func (d *database) executor(env *environment) *executor.SQLExecutor {
	return executor.New(executor.Config{DB: d.db, Dialect: d.dialect, Logger: env.logger})
}

// openEditor opens path in $EDITOR when --interactive is set.
func (c *baseCommand) openEditor(path string) error {
	if !c.flagInteractive {
		return nil
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editor, err)
	}
	return nil
}

// fail reports err and returns the failure exit code.
func (c *baseCommand) fail(err error) int {
	c.ui.Error(err.Error())
	return 1
}

// parse parses args, reporting usage problems.
func (c *baseCommand) parse(fs *flag.FlagSet, args []string) bool {
	if err := fs.Parse(args); err != nil {
		c.ui.Error(err.Error())
		return false
	}
	if fs.NArg() > 0 {
		c.ui.Error(fmt.Sprintf("unexpected arguments: %v", fs.Args()))
		return false
	}
	return true
}
