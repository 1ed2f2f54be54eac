// Package visual renders IR graphs as Mermaid flowcharts.
package visual

import (
	"fmt"
	"strings"

	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/ir"
)

// deadColor fills the nodes that reach no sink.
const deadColor = "ff6666"

var palette = map[ir.Kind]string{
	ir.KindRoot:          "dddddd",
	ir.KindMap:           "a8d8ea",
	ir.KindFilter:        "c3aed6",
	ir.KindFilterNonNull: "c3aed6",
	ir.KindFilterType:    "c3aed6",
	ir.KindFlatMap:       "a8e6cf",
	ir.KindCombine:       "ffd3b6",
	ir.KindCombineDrop:   "ffd3b6",
	ir.KindAggregate:     "fdffab",
	ir.KindAggregateDrop: "fdffab",
	ir.KindUnion:         "ffaaa5",
	ir.KindScope:         "b5ead7",
	ir.KindUnscope:       "b5ead7",
	ir.KindConsumer:      "ffffff",
}

type options struct {
	subgraph string
	ids      bool
}

// Option configures Mermaid.
type Option func(*options)

// AsSubgraph wraps the chart body in a subgraph titled title, for
// embedding several graphs in one chart.
func AsSubgraph(title string) Option {
	return func(o *options) { o.subgraph = title }
}

// WithNodeIDs labels nodes with their arena ids instead of their position.
// The output then depends on allocation order and is unfit for goldens.
func WithNodeIDs() Option {
	return func(o *options) { o.ids = true }
}

// Mermaid renders the graph reachable from the root of g.
//
// Nodes are numbered in topological order. Edge styles hint at the number
// of values an edge carries: solid for one, dotted for at most one, thick
// for many. Scopes are tied to their unscopes with a dashed link.
func Mermaid(g *ir.Graph, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	nodes := graph.TopologicalSort(g.Root())
	names := make(map[graph.ID]string, len(nodes))
	for i, n := range nodes {
		if o.ids {
			names[n.ID()] = fmt.Sprintf("n%d", n.ID())
		} else {
			names[n.ID()] = fmt.Sprintf("n%d", i)
		}
	}

	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if o.subgraph != "" {
		fmt.Fprintf(&b, "subgraph %s\n", quote(o.subgraph))
	}
	for _, n := range nodes {
		id := names[n.ID()]
		fmt.Fprintf(&b, "  %s([%s]); style %s fill:#%s\n", id, quote(Label(n)+"-"+id), id, color(n))
	}
	for _, n := range nodes {
		for _, c := range n.Children() {
			fmt.Fprintf(&b, "  %s %s %s\n", names[n.ID()], arrow(n), names[c.ID()])
		}
		if n.Kind() == ir.KindScope {
			for _, u := range n.Unscopes() {
				if name, ok := names[u.ID()]; ok {
					fmt.Fprintf(&b, "  %s -.- %s\n", names[n.ID()], name)
				}
			}
		}
	}
	if o.subgraph != "" {
		b.WriteString("end\n")
	}
	return b.String()
}

// Label names a node by its operation, without arena ids.
func Label(n *ir.Node) string {
	if c, ok := n.Op().(ir.Consumer); ok && c.Name != "" {
		return "Consume(" + c.Name + ")"
	}
	return n.Op().String()
}

func arrow(n *ir.Node) string {
	switch n.Kind() {
	case ir.KindFlatMap, ir.KindUnion:
		return "===>"
	case ir.KindFilter, ir.KindFilterNonNull, ir.KindFilterType, ir.KindAggregateDrop, ir.KindCombineDrop:
		return "-..->"
	}
	return "--->"
}

func color(n *ir.Node) string {
	if !n.HasSink() {
		return deadColor
	}
	return palette[n.Kind()]
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "#quot;") + `"`
}
