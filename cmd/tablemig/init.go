package main

import (
	"fmt"
	"strings"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/generate"
	"github.com/getpup/tablemig/gitrepo"
	"github.com/getpup/tablemig/scaffold"
)

// InitTableCommand creates the schema.sql or data.sql file of a table.
type InitTableCommand struct {
	baseCommand

	subject scaffold.Subject

	flagTable    string
	flagRequires stringSlice
}

func (c *InitTableCommand) Synopsis() string {
	return fmt.Sprintf("Create the %s file of a table", c.subject)
}

func (c *InitTableCommand) Help() string {
	helpText := `
Usage: tablemig init:%[1]s -t <table> [-r <required table>]...

  Create src/<table>/%[2]s in the migrations directory, initializing the
  directory first when needed. Each -r adds a {require:<table>} header so
  the table is migrated after the tables it depends on.

Options:

  -t, --table=<name>    Table directory name, e.g. app or app_v2 (required).
  -r, --require=<name>  Required table; repeatable or comma separated.
` + globalOptions
	filename, _ := c.subject.Filename()
	return strings.TrimSpace(fmt.Sprintf(helpText, c.subject, filename))
}

func (c *InitTableCommand) Run(args []string) int {
	fs := c.flagSet("init:" + string(c.subject))
	fs.StringVar(&c.flagTable, "table", "", "")
	fs.StringVar(&c.flagTable, "t", "", "")
	fs.Var(&c.flagRequires, "require", "")
	fs.Var(&c.flagRequires, "r", "")
	if !c.parse(fs, args) {
		return 1
	}
	if c.flagTable == "" {
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

	created, err := scaffold.Ensure(env.migDir)
	if err != nil {
		return c.fail(err)
	}
	if created {
		env.logger.Info(ctx, "migrations directory initialized", "dir", env.migDir)
	}

	path, err := scaffold.CreateTableFile(env.migDir, c.flagTable, c.subject, c.flagRequires)
	if err != nil {
		return c.fail(fmt.Errorf("%s file: %w", c.subject, err))
	}
	c.ui.Output(fmt.Sprintf("Created %s file at: %s", c.subject, path))

	if err := c.openEditor(path); err != nil {
		return c.fail(err)
	}
	return 0
}

// InitMigrationCommand generates the migration artifact of the working version.
type InitMigrationCommand struct {
	baseCommand

	flagType       string
	flagDialect    string
	flagAppVersion string
	flagPackage    string
}

func (c *InitMigrationCommand) Synopsis() string {
	return "Generate a migration from table changes since the previous release"
}

func (c *InitMigrationCommand) Help() string {
	helpText := `
Usage: tablemig init:migration [options]

  Compare every table under src/ with the previous release tag, order the
  changed tables by their requirements and write <version>.sql (or .go) to
  the migrations directory. When the working version is already tagged, a
  development marker is appended to it.

  The working version is --app-version, else app_version from the config,
  else the first line of the VERSION file in the project root.

Options:

  --type=<sql|go>        Artifact type (default: sql).
  --dialect=<name>       postgres, mysql or sqlite (default: database.dialect).
  --app-version=<semver> Working version override.
  --package=<name>       Go package of --type go artifacts (default: migrations).
` + globalOptions
	return strings.TrimSpace(helpText)
}

func (c *InitMigrationCommand) Run(args []string) int {
	fs := c.flagSet("init:migration")
	fs.StringVar(&c.flagType, "type", string(tablemig.KindSQL), "")
	fs.StringVar(&c.flagDialect, "dialect", "", "")
	fs.StringVar(&c.flagAppVersion, "app-version", "", "")
	fs.StringVar(&c.flagPackage, "package", "", "")
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

	kind, err := tablemig.ParseKind(c.flagType)
	if err != nil {
		return c.fail(err)
	}

	dialectName := c.flagDialect
	if dialectName == "" {
		dialectName = env.config.Database.Dialect
	}
	dialect, err := tablemig.ParseDialect(dialectName)
	if err != nil {
		return c.fail(err)
	}

	workingVersion, err := resolveVersion(c.flagAppVersion, env.config.AppVersion, env.root)
	if err != nil {
		return c.fail(err)
	}

	if _, err := scaffold.Ensure(env.migDir); err != nil {
		return c.fail(err)
	}

	generator := generate.New(generate.Config{
		RepoRoot:      env.root,
		MigrationsDir: env.migDir,
		Version:       workingVersion,
		Dialect:       dialect,
		Kind:          kind,
		Package:       c.flagPackage,
		Repo:          gitrepo.NewGit(env.root),
		Logger:        env.logger,
		Metrics:       env.metrics,
	})

	artifact, err := generator.Generate(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.ui.Output(fmt.Sprintf("Created migration %s at: %s", artifact.Version, artifact.Path))

	if err := c.openEditor(artifact.Path); err != nil {
		return c.fail(err)
	}
	return 0
}

// resolveVersion picks the working version: flag, then config, then VERSION file.
func resolveVersion(flagValue, configValue, root string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if configValue != "" {
		return configValue, nil
	}
	v, err := generate.ReadVersionFile(root)
	if err != nil {
		return "", fmt.Errorf("no working version: pass --app-version or create %s: %w", generate.VersionFile, err)
	}
	return v, nil
}
