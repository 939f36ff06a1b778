package executor

import (
	"context"
	"database/sql"
)

// Executor runs migration SQL against the target database.
// This interface allows for mock implementations in tests.
type Executor interface {
	Exec(ctx context.Context, body string) error
}

// Execer is the subset of *sql.DB, *sql.Conn and *sql.Tx used by SQLExecutor.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// connector is implemented by *sql.DB.
type connector interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}
