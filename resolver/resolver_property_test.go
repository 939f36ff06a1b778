package resolver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/getpup/tablemig"
)

// acyclicTables builds tables where table i may only require tables with a
// higher index, then shuffles them, so the graph is a DAG in any order.
func acyclicTables(rt *rapid.T) []tablemig.TableChangeSet {
	n := rapid.IntRange(0, 12).Draw(rt, "n")
	tables := make([]tablemig.TableChangeSet, n)
	for i := range tables {
		tables[i] = tablemig.TableChangeSet{Name: fmt.Sprintf("t%d", i), SchemaDelta: "x"}
		for j := i + 1; j < n; j++ {
			if rapid.Bool().Draw(rt, fmt.Sprintf("edge_%d_%d", i, j)) {
				tables[i].Requires = append(tables[i].Requires, fmt.Sprintf("t%d", j))
			}
		}
		if rapid.Bool().Draw(rt, fmt.Sprintf("external_%d", i)) {
			tables[i].Requires = append(tables[i].Requires, "external")
		}
	}
	return rapid.Permutation(tables).Draw(rt, "order")
}

func TestProperty_RequiredTablesComeFirst(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tables := acyclicTables(rt)

		out, err := Order(tables)
		require.NoError(rt, err)
		require.Len(rt, out, len(tables))

		pos := make(map[string]int, len(out))
		for i, tbl := range out {
			pos[tbl.Name] = i
		}
		for _, tbl := range out {
			for _, req := range tbl.Requires {
				if p, ok := pos[req]; ok {
					assert.Less(rt, p, pos[tbl.Name], "%s requires %s", tbl.Name, req)
				}
			}
		}
	})
}
