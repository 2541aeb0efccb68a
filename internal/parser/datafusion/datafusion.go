// Package datafusion parses DataFusion EXPLAIN ANALYZE console output: a
// fixed-width pipe table whose plan column holds an indented operator tree
// with a trailing metrics=[...] suffix per line.
package datafusion

import (
	"strconv"
	"strings"

	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/internal/tree"
	"github.com/planbench/planbench/internal/units"
)

// Parse consumes the full EXPLAIN ANALYZE text for one query. A document
// without a recognizable plan table yields a plan with empty Roots, not an
// error, so a batch of artifacts survives one malformed capture.
func Parse(text string) *model.Plan {
	lines := strings.Split(text, "\n")

	plan := &model.Plan{}
	scanPreamble(lines, plan)
	plan.ElapsedPings = scanElapsedPings(lines)

	rows := planRows(lines)
	plan.Roots = buildTree(rows)
	tree.Assemble(plan)
	return plan
}

type planRow struct {
	planType string
	text     string
}

// planRows locates the plan table by its header, skips the border beneath
// it and collects data rows until the closing border.
func planRows(lines []string) []planRow {
	start := -1
	for i, ln := range lines {
		if headerRe.MatchString(ln) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var rows []planRow
	i := start
	for i < len(lines) && !strings.HasPrefix(lines[i], "|") {
		i++
	}
	for ; i < len(lines); i++ {
		ln := lines[i]
		if borderRe.MatchString(ln) {
			break
		}
		if !strings.HasPrefix(ln, "|") {
			continue
		}
		if row, ok := splitColumns(ln); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// splitColumns slices a table line on its bar positions, keeping the plan
// column's leading spaces intact since indentation encodes the tree. A
// single space after the column bar belongs to the table, not the plan.
func splitColumns(line string) (planRow, bool) {
	var bars []int
	for i, ch := range line {
		if ch == '|' {
			bars = append(bars, i)
		}
	}
	if len(bars) < 3 {
		return planRow{}, false
	}
	left := strings.TrimSpace(line[bars[0]+1 : bars[1]])
	planText := strings.TrimRight(line[bars[1]+1:bars[len(bars)-1]], "\n")
	planText = strings.TrimPrefix(planText, " ")
	return planRow{planType: left, text: planText}, true
}

// buildTree turns the indented rows into operator trees. Depth is
// leadingSpaces/2 (DataFusion uses two-space indents); a row at depth d
// becomes a child of the most recent node at depth d-1, and an indentation
// jump past the open stack attaches to the deepest open ancestor.
func buildTree(rows []planRow) []*model.OperatorNode {
	var (
		roots       []*model.OperatorNode
		stack       []*model.OperatorNode
		curPlanType string
	)

	for _, row := range rows {
		if row.planType != "" {
			curPlanType = row.planType
		}

		text := strings.TrimRight(row.text, " \t")
		if text == "" {
			continue
		}

		leading := len(text) - len(strings.TrimLeft(text, " "))
		depth := leading / 2
		line := strings.TrimLeft(text, " ")

		metrics, rest := splitMetrics(line)
		nodeType, detail := splitTypeDetail(rest)

		node := &model.OperatorNode{
			Type:    nodeType,
			Detail:  detail,
			Depth:   depth,
			Metrics: metrics,
		}
		if curPlanType != "" {
			node.SetMetric("plan_type", curPlanType)
		}
		// elapsed_compute is DataFusion's per-operator CPU figure; surface
		// it under the shared processing key so the aggregator sees it.
		if sec, ok := node.Metric("elapsed_compute_s"); ok {
			node.SetMetric(model.MetricProcessingSeconds, sec)
		}
		if rows, ok := node.Metric("output_rows"); ok {
			node.SetMetric(model.MetricRows, int64(rows))
		}

		if depth == 0 || len(stack) == 0 {
			roots = append(roots, node)
			stack = []*model.OperatorNode{node}
			continue
		}

		var parent *model.OperatorNode
		if depth > len(stack) {
			parent = stack[len(stack)-1]
		} else {
			parent = stack[depth-1]
			stack = stack[:depth]
		}
		parent.Children = append(parent.Children, node)
		stack = append(stack, node)
	}

	return roots
}

// splitMetrics strips a trailing metrics=[k=v, ...] suffix and returns the
// normalized key/value map plus the remaining line text.
func splitMetrics(line string) (map[string]any, string) {
	m := metricsRe.FindStringSubmatchIndex(line)
	if m == nil {
		return nil, line
	}
	blob := line[m[2]:m[3]]
	rest := strings.TrimRight(line[:m[0]], " ,")

	metrics := map[string]any{}
	for _, kv := range keyValRe.FindAllStringSubmatch(blob, -1) {
		key, raw := kv[1], strings.TrimSpace(kv[2])
		switch v := units.Normalize(raw).(type) {
		case units.Duration:
			// Keep the engine's own spelling under the base key and expose
			// canonical seconds alongside it.
			metrics[key] = v.Raw
			metrics[key+"_s"] = v.Seconds
		default:
			metrics[key] = v
		}
	}
	if len(metrics) == 0 {
		return nil, rest
	}
	return metrics, rest
}

// splitTypeDetail splits an operator line on the first colon.
func splitTypeDetail(line string) (string, string) {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
	}
	return strings.TrimSpace(line), ""
}

func scanPreamble(lines []string, plan *model.Plan) {
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for _, ln := range lines[:limit] {
		if plan.QueryTitle == "" {
			if m := titleRe.FindStringSubmatch(ln); m != nil {
				plan.QueryTitle = strings.TrimSpace(m[1])
			}
		}
		if plan.CLIVersion == "" {
			if m := versionRe.FindStringSubmatch(ln); m != nil {
				plan.CLIVersion = strings.TrimSpace(m[1])
			}
		}
	}
}

func scanElapsedPings(lines []string) []float64 {
	var pings []float64
	for _, ln := range lines {
		m := elapsedRe.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			pings = append(pings, f)
		}
	}
	return pings
}
