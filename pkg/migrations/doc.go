// Package migrations renders table deltas into migration artifacts and
// writes them to the migrations directory.
//
// A declarative artifact wraps all schema deltas followed by all seed deltas
// in a dialect-specific transactional envelope: an anonymous DO block for
// PostgreSQL, a temporary stored procedure for MySQL/MariaDB, and an explicit
// transaction for SQLite. A programmatic artifact is a Go source stub that
// registers a script with the runner.
package migrations
