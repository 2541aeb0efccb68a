// Package dot renders a normalized plan as a Graphviz digraph. The output
// is the layout boundary: callers pipe it through dot themselves.
package dot

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/planbench/planbench/internal/model"
)

// Options controls the DOT output.
type Options struct {
	Title string
	// FillColor is the node background; engines get their own shade in the
	// historical diagrams.
	FillColor string
}

// Render writes the plan's flattened nodes and edges as a digraph. Edges
// point child-to-parent with dir=back so data flow reads bottom-up, the way
// the engine executes.
func Render(w io.Writer, plan *model.Plan, opts Options) error {
	if w == nil {
		return errors.New("dot: writer is nil")
	}
	if plan.Empty() {
		return errors.New("dot: empty plan")
	}
	if opts.Title == "" {
		opts.Title = "Query Operator Tree"
	}
	if opts.FillColor == "" {
		opts.FillColor = "lightblue"
	}

	fmt.Fprintln(w, "digraph plan {")
	fmt.Fprintf(w, "  rankdir=BT;\n")
	fmt.Fprintf(w, "  labelloc=t;\n")
	fmt.Fprintf(w, "  label=%q;\n", opts.Title)
	fmt.Fprintf(w, "  node [shape=box, style=\"rounded,filled\", fillcolor=%q];\n", opts.FillColor)
	fmt.Fprintln(w, "  edge [dir=back];")

	for _, fn := range plan.FlatNodes {
		fmt.Fprintf(w, "  n%d [label=%q];\n", fn.ID, nodeLabel(fn))
	}
	for _, edge := range plan.Edges {
		// dir=back draws the arrowhead at the parent, so the edge itself
		// runs child -> parent.
		fmt.Fprintf(w, "  n%d -> n%d;\n", edge.Child, edge.Parent)
	}

	fmt.Fprintln(w, "}")
	return nil
}

func nodeLabel(fn model.FlatNode) string {
	node := fn.Node
	parts := []string{fmt.Sprintf("O%d: %s", fn.ID, node.Type)}
	if node.Detail != "" {
		parts = append(parts, truncate(node.Detail, 60))
	}
	if wall, ok := node.Metric(model.MetricWallClockSeconds); ok && wall > 0 {
		parts = append(parts, fmt.Sprintf("%.6fs", wall))
	} else if processing, ok := node.Metric(model.MetricProcessingSeconds); ok && processing > 0 {
		parts = append(parts, fmt.Sprintf("%.6fs", processing))
	}
	if rows, ok := node.Metric(model.MetricRows); ok {
		parts = append(parts, fmt.Sprintf("rows: %.0f", rows))
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
