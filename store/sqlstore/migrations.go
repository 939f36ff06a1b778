package sqlstore

import (
	"fmt"

	"github.com/getpup/tablemig"
)

// TableConfig configures the ledger table.
type TableConfig struct {
	// Table is the name of the ledger table.
	Table string

	// Dialect selects the DDL flavor and placeholder style.
	Dialect tablemig.Dialect
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Table:   "migrations",
		Dialect: tablemig.DialectPostgres,
	}
}

// MigrationUp returns the SQL to create the ledger table if it does not exist.
func MigrationUp(config TableConfig) (string, error) {
	switch config.Dialect {
	case tablemig.DialectPostgres:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    version VARCHAR(255) NOT NULL,
    status VARCHAR(16) NOT NULL,
    note TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, config.Table), nil
	case tablemig.DialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    version VARCHAR(255) NOT NULL,
    status VARCHAR(16) NOT NULL,
    note TEXT,
    created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, config.Table), nil
	case tablemig.DialectSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    version TEXT NOT NULL,
    status TEXT NOT NULL,
    note TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, config.Table), nil
	default:
		return "", fmt.Errorf("%w: %q", tablemig.ErrUnsupportedDialect, config.Dialect)
	}
}

// MigrationDown returns the SQL to drop the ledger table.
func MigrationDown(config TableConfig) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", config.Table)
}
