// Package config loads tablemig settings.
//
// Precedence: defaults, then the YAML file, then TABLEMIG_* environment
// variables. Command-line flags are applied by the caller on top.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/logging"
	"github.com/getpup/tablemig/pkg/migrations"
	"github.com/getpup/tablemig/version"
)

// DefaultFile is the config file looked up in the project root.
const DefaultFile = "tablemig.yaml"

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "TABLEMIG"

// Config is the complete tablemig configuration.
type Config struct {
	// MigDir is the migrations root, relative to the project root unless absolute.
	MigDir string `yaml:"mig_dir"`

	// AppVersion overrides the VERSION file as the working version.
	AppVersion string `yaml:"app_version"`

	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig selects the target database and the ledger table.
type DatabaseConfig struct {
	Dialect     string `yaml:"dialect"`
	DSN         string `yaml:"dsn"`
	LedgerTable string `yaml:"ledger_table"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus textfile export.
// An empty Textfile disables the export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
	Project  string `yaml:"project"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		MigDir: "migrations",
		Database: DatabaseConfig{
			Dialect:     string(tablemig.DialectPostgres),
			LedgerTable: "migrations",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Project: "tablemig",
		},
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d DatabaseConfig) DriverName() string {
	if d.Dialect == string(tablemig.DialectSQLite) {
		return "sqlite3"
	}
	return d.Dialect
}

// Loader reads configuration from a file and the environment.
type Loader struct {
	path      string
	envPrefix string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// WithConfigPath sets the YAML file to read. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load builds the configuration. It does not validate it.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.path != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	l.loadFromEnv(cfg)
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", l.path, err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"MIG_DIR", &cfg.MigDir},
		{"APP_VERSION", &cfg.AppVersion},
		{"DATABASE_DIALECT", &cfg.Database.Dialect},
		{"DATABASE_DSN", &cfg.Database.DSN},
		{"LEDGER_TABLE", &cfg.Database.LedgerTable},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"METRICS_TEXTFILE", &cfg.Metrics.Textfile},
		{"METRICS_PROJECT", &cfg.Metrics.Project},
	}

	for _, o := range overrides {
		if value, ok := l.lookupEnv(l.envPrefix + "_" + o.key); ok && value != "" {
			*o.target = value
		}
	}
}

// Validate reports every invalid field at once.
// The DSN is not required here; only database commands need it.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.MigDir) == "" {
		result = multierror.Append(result, fmt.Errorf("mig_dir cannot be empty"))
	}

	if _, err := tablemig.ParseDialect(c.Database.Dialect); err != nil {
		result = multierror.Append(result, fmt.Errorf("database.dialect: %w", err))
	}

	if err := migrations.ValidateIdentifier(c.Database.LedgerTable, "database.ledger_table"); err != nil {
		result = multierror.Append(result, err)
	}

	if c.AppVersion != "" {
		if err := version.Validate(c.AppVersion); err != nil {
			result = multierror.Append(result, fmt.Errorf("app_version: %w", err))
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", err))
	}

	if !isFormat(c.Log.Format) {
		result = multierror.Append(result, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return result.ErrorOrNil()
}

func isFormat(format string) bool {
	for _, f := range logging.Formats {
		if f == format {
			return true
		}
	}
	return false
}
