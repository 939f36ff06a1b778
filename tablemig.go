// Package tablemig holds the data model and error taxonomy shared by the
// migration generator and the migration runner.
//
// Tables are authored as append-only schema.sql and data.sql files under
// <migrations>/src/<table>[_v<N>]/. Generation compares every table with the
// previous release tag, keeps only the appended lines, orders the changed
// tables by their {require:TABLE} annotations and renders a single artifact
// named after the working version. The runner applies artifacts above the
// ledger's current version, one tracked attempt at a time:
//
//	pending -> ok
//	pending -> error (halts the run)
//
// A pending row left behind by an interrupted run blocks further runs until
// an operator resolves it.
package tablemig
