// Package snowflake parses the capture produced by the warehouse's
// EXPLAIN_ANALYZE procedure: an Operations array of operator records with
// explicit parent links, sibling operator statistics, and a run summary.
// The capture layer frames the JSON in banner text, so extraction tolerates
// surrounding noise.
package snowflake

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/planbench/planbench/internal/jsonutil"
	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/internal/tree"
)

// Parse consumes one plan artifact. Missing Operations yields a plan with
// empty Roots and a nil error; only a document with no recoverable JSON at
// all is reported as an error.
func Parse(data []byte) (*model.Plan, error) {
	doc, err := ExtractJSON(data)
	if err != nil {
		return nil, err
	}

	plan := &model.Plan{
		QueryTitle: jsonutil.AsString(doc["query_id"]),
	}

	operations, stats := pickSections(doc)
	if len(operations) == 0 {
		return plan, nil
	}

	nodes := buildNodes(operations)
	roots := linkParents(operations, nodes)
	if len(roots) == 0 {
		return plan, nil
	}

	totalSeconds := totalQuerySeconds(pickSummary(doc))
	applyStats(nodes, stats, totalSeconds)

	annotateDepth(roots)
	if totalSeconds > 0 {
		roots[0].SetMetric(model.MetricWallClockSeconds, totalSeconds)
	}

	plan.Roots = roots
	tree.Assemble(plan)
	return plan, nil
}

// pickSections accepts either the {plan_json, stats} procedure result or
// the legacy {Operations, Stats} layout.
func pickSections(doc map[string]any) (operations []map[string]any, stats []map[string]any) {
	planDoc := doc
	if inner, err := jsonutil.AsObject(doc["plan_json"]); err == nil {
		planDoc = inner
	}

	// Operations is a list of statement groups; each group is the flat
	// operator list for one statement. Normally there is exactly one group.
	groups := jsonutil.AsSlice(planDoc["Operations"])
	if len(groups) > 0 {
		for _, entry := range jsonutil.AsSlice(groups[0]) {
			if op, err := jsonutil.AsObject(entry); err == nil {
				operations = append(operations, op)
			}
		}
	}

	rawStats := doc["stats"]
	if rawStats == nil {
		rawStats = doc["Stats"]
	}
	for _, entry := range jsonutil.AsSlice(rawStats) {
		if st, err := jsonutil.AsObject(entry); err == nil {
			stats = append(stats, st)
		}
	}
	return operations, stats
}

func pickSummary(doc map[string]any) map[string]any {
	for _, key := range []string{"summary", "Summary", "SUMMARY"} {
		if obj, err := jsonutil.AsObject(doc[key]); err == nil {
			return obj
		}
	}
	return nil
}

func buildNodes(operations []map[string]any) map[int64]*model.OperatorNode {
	nodes := make(map[int64]*model.OperatorNode, len(operations))
	for _, op := range operations {
		id := jsonutil.AsInt64(op["id"])
		opType := jsonutil.AsString(op["operation"])
		nodes[id] = &model.OperatorNode{
			Type:   opType,
			Detail: operatorDetail(opType, op),
		}
	}
	return nodes
}

// linkParents materializes the tree from the explicit parentOperators
// references. Each node attaches under every listed parent that exists, so
// a defensive multi-parent record stays DAG-safe; a node with no resolvable
// parent becomes a root.
func linkParents(operations []map[string]any, nodes map[int64]*model.OperatorNode) []*model.OperatorNode {
	var roots []*model.OperatorNode
	for _, op := range operations {
		id := jsonutil.AsInt64(op["id"])
		node := nodes[id]

		attached := false
		for _, rawParent := range jsonutil.AsSlice(op["parentOperators"]) {
			parent, ok := nodes[jsonutil.AsInt64(rawParent)]
			if !ok || parent == node {
				continue
			}
			parent.Children = append(parent.Children, node)
			attached = true
		}
		if !attached {
			roots = append(roots, node)
		}
	}
	return roots
}

// operatorDetail derives the display detail per operator family; anything
// unrecognized shows no detail beyond the type name.
func operatorDetail(opType string, op map[string]any) string {
	switch opType {
	case "TableScan", "ExternalScan":
		objects := jsonutil.AsStringSlice(op["objects"])
		name := "unknown"
		if len(objects) > 0 {
			parts := strings.Split(objects[0], ".")
			name = parts[len(parts)-1]
		}
		assigned := jsonutil.AsString(op["partitionsAssigned"])
		total := jsonutil.AsString(op["partitionsTotal"])
		if assigned == "" {
			assigned = "?"
		}
		if total == "" {
			total = "?"
		}
		return fmt.Sprintf("%s partitions %s/%s", name, assigned, total)
	case "Filter", "JoinFilter":
		if exprs := jsonutil.AsStringSlice(op["expressions"]); len(exprs) > 0 {
			return exprs[0]
		}
	case "Aggregate", "GroupingSets":
		for _, expr := range jsonutil.AsStringSlice(op["expressions"]) {
			if !strings.Contains(expr, "groupKeys") {
				continue
			}
			keys := expr
			if idx := strings.LastIndex(keys, ": ["); idx >= 0 {
				keys = keys[idx+3:]
			}
			keys = strings.ReplaceAll(keys, "]", "")
			return "GROUP BY " + keys
		}
	case "Sort", "SortWithLimit":
		if exprs := jsonutil.AsStringSlice(op["expressions"]); len(exprs) > 0 {
			return "ORDER BY " + exprs[0]
		}
	}
	return ""
}

// totalQuerySeconds pulls the global elapsed figure (milliseconds) from the
// run summary.
func totalQuerySeconds(summary map[string]any) float64 {
	if summary == nil {
		return 0
	}
	for _, key := range []string{"TOTAL_ELAPSED_TIME", "total_elapsed_time"} {
		if f, ok := jsonutil.Float(summary[key]); ok {
			return f / 1000.0
		}
	}
	return 0
}

func annotateDepth(roots []*model.OperatorNode) {
	var walk func(n *model.OperatorNode, depth int)
	seen := map[*model.OperatorNode]bool{}
	walk = func(n *model.OperatorNode, depth int) {
		if seen[n] {
			return
		}
		seen[n] = true
		n.Depth = depth
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
}

// unmarshalLenient decodes JSON preserving number fidelity.
func unmarshalLenient(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	return jsonutil.AsObject(payload)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
