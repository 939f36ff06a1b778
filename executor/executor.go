package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/tablemig"
)

// Config configures the SQL executor.
type Config struct {
	// DB is the database handle statements are executed on (required).
	DB Execer

	// Dialect decides how a body is split into statements (default: postgres).
	Dialect tablemig.Dialect

	// Logger is an optional logger for observability.
	Logger es.Logger
}

// SQLExecutor executes migration bodies through database/sql.
type SQLExecutor struct {
	config Config
}

// Compile-time check that SQLExecutor implements Executor.
var _ Executor = (*SQLExecutor)(nil)

// New creates a new SQLExecutor with the given configuration.
func New(cfg Config) *SQLExecutor {
	if cfg.Dialect == "" {
		cfg.Dialect = tablemig.DialectPostgres
	}

	return &SQLExecutor{
		config: cfg,
	}
}

// Exec runs body against the database.
//
// PostgreSQL and SQLite bodies are sent as a single multi-statement call.
// MySQL bodies use the client-side DELIMITER directive, so they are split
// into statements which run in order on one connection.
func (e *SQLExecutor) Exec(ctx context.Context, body string) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	if e.config.Dialect != tablemig.DialectMySQL {
		if _, err := e.config.DB.ExecContext(ctx, body); err != nil {
			return err
		}
		return nil
	}

	db := e.config.DB
	if c, ok := db.(connector); ok {
		conn, err := c.Conn(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire connection: %w", err)
		}
		defer conn.Close()
		db = conn
	}

	statements := SplitStatements(body)
	for i, stmt := range statements {
		if e.config.Logger != nil {
			e.config.Logger.Debug(ctx, "executing statement", "index", i+1, "total", len(statements))
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d of %d: %w", i+1, len(statements), err)
		}
	}

	return nil
}

const defaultDelimiter = ";"

// SplitStatements splits a MySQL script into statements, honoring DELIMITER
// directives the way the mysql client does. Delimiters are stripped and
// comment-only statements are dropped. A trailing statement without a
// delimiter is kept.
func SplitStatements(body string) []string {
	delimiter := defaultDelimiter
	var statements []string
	var buf strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		if stmt != "" && !commentOnly(stmt) {
			statements = append(statements, stmt)
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if fields := strings.Fields(trimmed); len(fields) == 2 && strings.EqualFold(fields[0], "DELIMITER") {
			flush()
			delimiter = fields[1]
			continue
		}

		if strings.HasPrefix(trimmed, "--") || !strings.HasSuffix(trimmed, delimiter) {
			buf.WriteString(line)
			buf.WriteString("\n")
			continue
		}

		buf.WriteString(strings.TrimSuffix(strings.TrimRight(line, " \t\r"), delimiter))
		flush()
	}
	flush()

	return statements
}

func commentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			return false
		}
	}
	return true
}
