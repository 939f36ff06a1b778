package migrations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/getpup/tablemig"
)

const indent = "    "

// prettyPrint trims s and prefixes every non-empty line with pad.
// Each line, including the last, is terminated by a newline.
func prettyPrint(s, pad string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line != "" {
			b.WriteString(pad)
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var procedureUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// ProcedureName returns the temporary MySQL procedure name for a migration.
func ProcedureName(name string) string {
	return "migration_" + procedureUnsafe.ReplaceAllString(name, "")
}

// RenderSQL wraps schema and seed blocks in the dialect's transactional template.
// name identifies the unit (a version or a seeder name) where the dialect needs one.
func RenderSQL(dialect tablemig.Dialect, schema, seed, name string) (string, error) {
	switch dialect {
	case tablemig.DialectPostgres:
		return renderPostgres(schema, seed), nil
	case tablemig.DialectMySQL:
		return renderMySQL(schema, seed, ProcedureName(name)), nil
	case tablemig.DialectSQLite:
		return renderSQLite(schema, seed), nil
	default:
		return "", fmt.Errorf("%w: %q", tablemig.ErrUnsupportedDialect, dialect)
	}
}

func renderPostgres(schema, seed string) string {
	return "DO $$\n" +
		"-- Start transaction immediately\n" +
		"BEGIN\n" +
		"-- SCHEMA CHANGES\n" +
		prettyPrint(schema, indent) +
		"\n" +
		"-- DATA CHANGES\n" +
		prettyPrint(seed, indent) +
		"END\n" +
		"$$;"
}

// DDL causes an implicit commit in MySQL, so schema changes run in the
// procedure body before the explicit data transaction starts.
func renderMySQL(schema, seed, procedure string) string {
	if seed != "" {
		seed = "-- DATA CHANGES\n" +
			"SET autocommit=0;\n" +
			"START TRANSACTION;\n" +
			prettyPrint(seed, indent) +
			"COMMIT;"
	}

	return fmt.Sprintf(`DELIMITER $$
DROP PROCEDURE IF EXISTS %[1]s $$

CREATE PROCEDURE %[1]s()
BEGIN
    DECLARE EXIT HANDLER FOR SQLEXCEPTION
    BEGIN
        ROLLBACK;
        RESIGNAL;
    END;
    -- SCHEMA CHANGES
    -- DDL is not transactional and causes implicit COMMIT;
    -- thus must be executed outside of a transaction
%[2]s
%[3]s
END $$

-- execute migration via the procedure
CALL %[1]s() $$
DROP PROCEDURE IF EXISTS %[1]s $$
DELIMITER ;`, procedure, prettyPrint(schema, indent), prettyPrint(seed, indent))
}

func renderSQLite(schema, seed string) string {
	return "BEGIN TRANSACTION;\n" +
		"-- SCHEMA CHANGES\n" +
		prettyPrint(schema, "") +
		"\n" +
		"-- DATA CHANGES\n" +
		prettyPrint(seed, "") +
		"COMMIT;\n"
}

// RenderGo returns the source of a programmatic migration for version.
// The schema and seed deltas are carried as comments for the author to port.
func RenderGo(pkg, version, schema, seed string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("import (\n")
	b.WriteString("\t\"context\"\n\n")
	b.WriteString("\t\"github.com/getpup/tablemig/executor\"\n")
	b.WriteString("\t\"github.com/getpup/tablemig/runner\"\n")
	b.WriteString(")\n\n")
	b.WriteString("func init() {\n")
	fmt.Fprintf(&b, "\trunner.Register(%s, func(ctx context.Context, exec executor.Executor) error {\n", strconv.Quote(version))
	b.WriteString("\t\t// SCHEMA CHANGES\n")
	b.WriteString(commentBlock(schema))
	b.WriteString("\t\t// DATA CHANGES\n")
	b.WriteString(commentBlock(seed))
	b.WriteString("\t\treturn nil\n")
	b.WriteString("\t})\n")
	b.WriteString("}\n")
	return b.String()
}

func commentBlock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		b.WriteString("\t\t//")
		if line != "" {
			b.WriteString(" ")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
