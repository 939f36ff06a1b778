// Package delta computes append-only deltas between released and current
// table definitions and extracts inline {require:TABLE} annotations.
package delta

import (
	"regexp"
	"strings"

	"github.com/getpup/tablemig"
)

// CommentMarker starts a single-line SQL comment.
const CommentMarker = "--"

// Compute returns the lines of current appended after previous.
//
// A nil or empty previous means the content was never released and all of
// current is returned. Every released line must be unchanged in current,
// except that a comment line may be replaced by another comment line.
// Any other edit or removal fails with *tablemig.InconsistentDataError.
func Compute(previous *string, current string) (string, error) {
	if previous == nil || *previous == "" {
		return current, nil
	}
	if *previous == current {
		return "", nil
	}

	// A trailing newline terminates the last released line; it does not
	// release an extra empty one.
	prevLines := strings.Split(strings.TrimSuffix(*previous, "\n"), "\n")
	curLines := strings.Split(current, "\n")

	for i, prev := range prevLines {
		if i >= len(curLines) {
			return "", &tablemig.InconsistentDataError{Line: i + 1, Previous: prev, Removed: true}
		}
		cur := curLines[i]
		if prev == cur {
			continue
		}
		if isComment(prev) && isComment(cur) {
			continue
		}
		return "", &tablemig.InconsistentDataError{Line: i + 1, Previous: prev, Current: cur}
	}

	if len(curLines) == len(prevLines) {
		return "", nil
	}
	return strings.Join(curLines[len(prevLines):], "\n"), nil
}

// isComment reports whether line starts with the comment marker.
// Indented comments do not qualify.
func isComment(line string) bool {
	return strings.HasPrefix(line, CommentMarker)
}

var requirePattern = regexp.MustCompile(`\{require:([\w-]+)\}`)

// ExtractRequires returns the table names referenced by {require:NAME}
// markers in text, in order of appearance. Duplicates are kept.
func ExtractRequires(text string) []string {
	matches := requirePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// Union merges name lists, keeping the first occurrence of each name.
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// RequireFlag renders the comment line declaring a dependency on table.
func RequireFlag(table string) string {
	return CommentMarker + " {require:" + table + "}\n"
}

// Apply fills in Requires, SchemaDelta and SeedDelta of a table change set.
// Inconsistency errors are annotated with the table and file name.
func Apply(ts *tablemig.TableChangeSet) error {
	ts.Requires = Union(ExtractRequires(ts.CurrentSeed), ExtractRequires(ts.CurrentSchema))

	schema, err := Compute(ts.PreviousSchema, ts.CurrentSchema)
	if err != nil {
		return annotate(err, ts.Name, "schema.sql")
	}
	seed, err := Compute(ts.PreviousSeed, ts.CurrentSeed)
	if err != nil {
		return annotate(err, ts.Name, "data.sql")
	}

	ts.SchemaDelta = schema
	ts.SeedDelta = seed
	return nil
}

func annotate(err error, table, file string) error {
	if ide, ok := err.(*tablemig.InconsistentDataError); ok {
		ide.Table = table
		ide.File = file
	}
	return err
}
