// Package resolver orders changed tables so that every required table is
// migrated before the tables that depend on it.
package resolver

import (
	"github.com/getpup/tablemig"
)

// FilterChanged returns the tables with a non-empty schema or seed delta,
// preserving input order.
func FilterChanged(tables []tablemig.TableChangeSet) []tablemig.TableChangeSet {
	out := make([]tablemig.TableChangeSet, 0, len(tables))
	for _, t := range tables {
		if t.Changed() {
			out = append(out, t)
		}
	}
	return out
}

type mark int

const (
	unvisited mark = iota
	visiting
	done
)

// Order returns tables in dependency order.
//
// Requirements naming tables outside the given set are ignored, as is a
// table requiring itself. Tables without an ordering constraint keep their
// relative input order. A require cycle fails with
// *tablemig.CyclicDependencyError.
func Order(tables []tablemig.TableChangeSet) ([]tablemig.TableChangeSet, error) {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		if _, ok := index[t.Name]; !ok {
			index[t.Name] = i
		}
	}

	marks := make([]mark, len(tables))
	out := make([]tablemig.TableChangeSet, 0, len(tables))
	var path []string

	var visit func(i int) error
	visit = func(i int) error {
		switch marks[i] {
		case done:
			return nil
		case visiting:
			return &tablemig.CyclicDependencyError{Cycle: cycleFrom(path, tables[i].Name)}
		}

		marks[i] = visiting
		path = append(path, tables[i].Name)

		for _, req := range tables[i].Requires {
			if req == tables[i].Name {
				continue
			}
			j, ok := index[req]
			if !ok {
				continue
			}
			if err := visit(j); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		marks[i] = done
		out = append(out, tables[i])
		return nil
	}

	for i := range tables {
		if err := visit(i); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// cycleFrom returns the tail of path starting at name, closed with name.
func cycleFrom(path []string, name string) []string {
	for i, p := range path {
		if p == name {
			cycle := append([]string(nil), path[i:]...)
			return append(cycle, name)
		}
	}
	return []string{name, name}
}

// Resolve filters out unchanged tables and orders the rest.
func Resolve(tables []tablemig.TableChangeSet) ([]tablemig.TableChangeSet, error) {
	return Order(FilterChanged(tables))
}
