package transform

import (
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/ir"
)

// CopyNodes copies every node of nodes and rewires the copies among
// themselves: a copy whose original parent was copied too hangs under that
// parent's copy. The translations are recorded in table, which is created
// when nil, and the table is returned.
//
// nodes must be in topological order for the copies to form the same shape
// as the originals.
func CopyNodes(nodes []*ir.Node, table *ir.TranslationTable) *ir.TranslationTable {
	if table == nil {
		table = ir.NewTranslationTable()
	}
	copies := make([]*ir.Node, len(nodes))
	for i, n := range nodes {
		copies[i] = n.Copy()
		table.Add(n, copies[i])
	}
	for _, c := range copies {
		c.ApplyTranslation(table)
	}
	return table
}

// CopySubTree duplicates the nodes between from and subTreeTo under to,
// then moves subTreeTo onto the copies.
//
// Only the strict ancestors of subTreeTo below from are copied; after the
// call the original path from from to subTreeTo is left without that sink
// and is usually removed by RemoveUnusedNodes.
func CopySubTree(from, to, subTreeTo *ir.Node) {
	ancestors := subTreeTo.StrictAncestors()

	var nodes []*ir.Node
	for _, n := range graph.TopologicalSort(from)[1:] {
		if ancestors.Has(n.ID()) {
			nodes = append(nodes, n)
		}
	}

	table := ir.NewTranslationTable()
	table.Add(from, to)
	CopyNodes(nodes, table)
	subTreeTo.ApplyTranslation(table)
}
