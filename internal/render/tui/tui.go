package tui

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/planbench/planbench/internal/aggregate"
	"github.com/planbench/planbench/internal/model"
)

// Options controls how the TUI renderer behaves.
type Options struct {
	EnableColor bool
	MaxDepth    int
	BarWidth    int
}

// Render prints an ASCII plan tree with per-operator share bars and a
// totals header.
func Render(w io.Writer, plan *model.Plan, totals aggregate.Totals, opts Options) error {
	if w == nil {
		return errors.New("tui: writer is nil")
	}
	if plan.Empty() {
		return errors.New("tui: empty plan")
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = 20
	}

	if plan.QueryTitle != "" {
		fmt.Fprintf(w, "Query: %s\n", plan.QueryTitle)
	}
	fmt.Fprintf(w, "Wall clock %.3f s | processing %.3f s (%.1f%%) | synchronization %.3f s (%.1f%%)\n",
		totals.WallClockSeconds,
		totals.ProcessingSeconds, totals.ProcessingPercent,
		totals.SynchronizationSeconds, totals.SynchronizationPercent)
	fmt.Fprintf(w, "Operators %d | hot %d\n\n", totals.NodeCount, len(totals.HotOperators))

	for _, root := range plan.Roots {
		fmt.Fprintf(w, "%s\n", renderLine(root, totals.WallClockSeconds, opts))
		printChildren(w, root, "", totals.WallClockSeconds, opts)
	}
	return nil
}

func printChildren(w io.Writer, parent *model.OperatorNode, prefix string, wall float64, opts Options) {
	for i, child := range parent.Children {
		renderBranch(w, child, prefix, i == len(parent.Children)-1, wall, opts)
	}
}

func renderBranch(w io.Writer, node *model.OperatorNode, prefix string, isLast bool, wall float64, opts Options) {
	connector := "|-- "
	childPrefix := prefix + "|   "
	if isLast {
		connector = "`-- "
		childPrefix = prefix + "    "
	}

	fmt.Fprintf(w, "%s%s%s\n", prefix, connector, renderLine(node, wall, opts))

	if opts.MaxDepth > 0 && node.Depth >= opts.MaxDepth {
		if len(node.Children) > 0 {
			fmt.Fprintf(w, "%s`-- ... (%d more nodes)\n", childPrefix, countDescendants(node))
		}
		return
	}
	printChildren(w, node, childPrefix, wall, opts)
}

func renderLine(node *model.OperatorNode, wall float64, opts Options) string {
	label := node.Type
	if node.Detail != "" {
		label += " (" + truncate(node.Detail, 40) + ")"
	}

	processing := node.MetricOrZero(model.MetricProcessingSeconds)
	share := 0.0
	if wall > 0 {
		share = processing / wall
	}

	bar := drawBar(share, opts.BarWidth)
	if opts.EnableColor {
		bar = applyColor(bar, pickColor(share))
	}

	parts := []string{
		label,
		fmt.Sprintf("proc %.4f s", processing),
		fmt.Sprintf("%5.1f%%", share*100),
		bar,
	}
	if sync := node.MetricOrZero(model.MetricSynchronizationSeconds); sync > 0 {
		parts = append(parts, fmt.Sprintf("sync %.4f s", sync))
	}
	if rows, ok := node.Metric(model.MetricRows); ok {
		parts = append(parts, fmt.Sprintf("rows %.0f", rows))
	}
	return strings.Join(parts, " | ")
}

func drawBar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	clamped := math.Max(0, math.Min(1, ratio))
	fill := int(math.Round(clamped * float64(width)))
	if clamped > 0 && fill == 0 {
		fill = 1
	}
	if fill > width {
		fill = width
	}
	return strings.Repeat("#", fill) + strings.Repeat("-", width-fill)
}

func pickColor(ratio float64) string {
	switch {
	case ratio >= 0.40:
		return "red"
	case ratio >= 0.20:
		return "yellow"
	case ratio >= 0.10:
		return "cyan"
	default:
		return ""
	}
}

func applyColor(text, color string) string {
	code := ""
	switch color {
	case "red":
		code = "\033[31m"
	case "yellow":
		code = "\033[33m"
	case "cyan":
		code = "\033[36m"
	default:
		return text
	}
	return code + text + "\033[0m"
}

func countDescendants(node *model.OperatorNode) int {
	total := 0
	var walk func(*model.OperatorNode)
	walk = func(n *model.OperatorNode) {
		for _, child := range n.Children {
			total++
			walk(child)
		}
	}
	walk(node)
	return total
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
