// Package duckdb parses DuckDB query-profile JSON: a nested tree in which
// operator nodes are recognized by their operator-type field and wrapper
// levels (query root, result collector framing) are skipped transparently
// with their children promoted.
package duckdb

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/planbench/planbench/internal/jsonutil"
	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/internal/tree"
)

// Parse reads a DuckDB profile document. A payload without any operator
// node yields a plan with empty Roots and a nil error; only undecodable
// JSON is reported.
func Parse(r io.Reader) (*model.Plan, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("duckdb: decode profile json: %w", err)
	}

	top, err := jsonutil.AsObject(payload)
	if err != nil {
		return nil, fmt.Errorf("duckdb: unexpected top-level value: %w", err)
	}

	plan := &model.Plan{
		QueryTitle: jsonutil.AsString(firstPresent(top, "query_name", "query")),
	}

	operators := promote(top, 1)
	if len(operators) == 0 {
		return plan, nil
	}

	// The synthetic root owns the promoted top-level operators and carries
	// the whole-query wall clock, found at the first node in document order
	// that reports a latency.
	root := &model.OperatorNode{Type: "Query", Depth: 0, Children: operators}
	latency, _ := findLatency(top)
	root.SetMetric(model.MetricWallClockSeconds, latency)
	if title := plan.QueryTitle; title != "" {
		root.Detail = title
	}

	plan.Roots = []*model.OperatorNode{root}
	deriveTimings(root, latency)
	tree.Assemble(plan)
	return plan, nil
}

// promote converts a raw JSON subtree into operator nodes. Wrapper objects
// contribute nothing themselves; their children bubble up to the nearest
// enclosing operator, or to the synthetic root when none exists yet.
func promote(obj map[string]any, depth int) []*model.OperatorNode {
	children := jsonutil.AsSlice(obj["children"])

	if !isOperator(obj) {
		var out []*model.OperatorNode
		for _, child := range children {
			childObj, err := jsonutil.AsObject(child)
			if err != nil {
				continue
			}
			out = append(out, promote(childObj, depth)...)
		}
		return out
	}

	node := buildOperator(obj, depth)
	for _, child := range children {
		childObj, err := jsonutil.AsObject(child)
		if err != nil {
			continue
		}
		node.Children = append(node.Children, promote(childObj, depth+1)...)
	}
	return []*model.OperatorNode{node}
}

func isOperator(obj map[string]any) bool {
	return jsonutil.AsString(firstPresent(obj, "operator_type", "operator_name", "name")) != ""
}

func buildOperator(obj map[string]any, depth int) *model.OperatorNode {
	node := &model.OperatorNode{
		Type:   jsonutil.AsString(firstPresent(obj, "operator_type", "operator_name", "name")),
		Detail: extraInfo(obj["extra_info"]),
		Depth:  depth,
	}

	// Source reports these in seconds already.
	timing, hasTiming := jsonutil.Float(obj["operator_timing"])
	cpu, hasCPU := jsonutil.Float(obj["cpu_time"])
	blocked, _ := jsonutil.Float(obj["blocked_thread_time"])

	if hasTiming {
		node.SetMetric(model.MetricWallClockSeconds, timing)
	}
	if hasCPU {
		node.SetMetric("cpu_time", cpu)
	}

	// CPU time legitimately exceeds wall time under parallelism, so wall
	// time caps the processing estimate.
	processing := cpu
	if !hasCPU {
		processing = timing
	} else if hasTiming && timing < cpu {
		processing = timing
	}
	node.SetMetric(model.MetricProcessingSeconds, processing)
	node.SetMetric(model.MetricSynchronizationSeconds, blocked)

	if rows, ok := jsonutil.Float(firstPresent(obj, "operator_cardinality", "cardinality")); ok {
		node.SetMetric(model.MetricRows, int64(rows))
	}
	if br, ok := jsonutil.Float(obj["bytes_read"]); ok {
		node.SetMetric(model.MetricBytesRead, int64(br))
	}
	if bw, ok := jsonutil.Float(firstPresent(obj, "bytes_written", "result_set_size")); ok {
		node.SetMetric(model.MetricBytesWritten, int64(bw))
	}

	return node
}

// deriveTimings annotates every operator with percentage shares relative to
// the root wall clock. A zero root wall clock defines every share as 0.
func deriveTimings(root *model.OperatorNode, rootWall float64) {
	var walk func(n *model.OperatorNode)
	walk = func(n *model.OperatorNode) {
		wall := n.MetricOrZero(model.MetricWallClockSeconds)
		processing := n.MetricOrZero(model.MetricProcessingSeconds)
		sync := n.MetricOrZero(model.MetricSynchronizationSeconds)

		n.SetMetric(model.MetricOverallPercentage, share(wall, rootWall))
		n.SetMetric(model.MetricProcessingPercentage, share(processing, rootWall))
		n.SetMetric(model.MetricSyncPercentage, share(sync, rootWall))

		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
}

func share(component, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * component / total
}

// findLatency locates the first non-null latency field by depth-first
// search through the raw document.
func findLatency(obj map[string]any) (float64, bool) {
	if v, ok := obj["latency"]; ok && v != nil {
		if f, numeric := jsonutil.Float(v); numeric {
			return f, true
		}
	}
	for _, child := range jsonutil.AsSlice(obj["children"]) {
		childObj, err := jsonutil.AsObject(child)
		if err != nil {
			continue
		}
		if f, ok := findLatency(childObj); ok {
			return f, true
		}
	}
	return 0, false
}

func extraInfo(val any) string {
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			text := strings.TrimSpace(jsonutil.AsString(v[k]))
			if text == "" {
				continue
			}
			parts = append(parts, k+"="+text)
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
