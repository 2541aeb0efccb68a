package model

// OperatorNode is one operator in a normalized query execution plan.
//
// Metric values are normalized by the units package: float64 seconds for
// durations, int64 for bytes and counts. Values the normalizer could not
// classify are preserved as their original string, so consumers must be
// prepared to see either a number or a string in any slot.
type OperatorNode struct {
	Type     string
	Detail   string
	Metrics  map[string]any
	Depth    int
	Children []*OperatorNode
}

// Metric returns the named metric as a float64 when it holds a numeric value.
func (n *OperatorNode) Metric(name string) (float64, bool) {
	if n == nil || n.Metrics == nil {
		return 0, false
	}
	switch v := n.Metrics[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// MetricOrZero returns the named metric as a float64, or 0 when absent or
// non-numeric.
func (n *OperatorNode) MetricOrZero(name string) float64 {
	v, _ := n.Metric(name)
	return v
}

// SetMetric stores a metric value, allocating the map on first use.
func (n *OperatorNode) SetMetric(name string, value any) {
	if n.Metrics == nil {
		n.Metrics = map[string]any{}
	}
	n.Metrics[name] = value
}

// FlatNode pairs an operator with its stable id assigned by the tree
// assembler (first-visit pre-order DFS order, starting at 0).
type FlatNode struct {
	ID   int
	Node *OperatorNode
}

// Edge links a parent id to a child id in the flattened plan.
type Edge struct {
	Parent int
	Child  int
}

// Plan is the top-level parse result for one executed query.
//
// A Plan is constructed once per raw artifact and not mutated afterwards.
// Roots normally holds exactly one node; some formats legally yield more
// than one top-level statement. An empty Roots slice is the "plan not
// found" signal: callers skip that query instead of aborting a batch.
type Plan struct {
	QueryTitle string
	CLIVersion string

	// ElapsedPings are whole-query wall-clock samples reported outside the
	// plan table, in seconds (DataFusion CLI prints these per statement).
	ElapsedPings []float64

	Roots     []*OperatorNode
	FlatNodes []FlatNode
	Edges     []Edge
}

// Empty reports whether the parser found no plan structure at all.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Roots) == 0
}

// NodeCount returns the number of operators reachable from the roots.
func (p *Plan) NodeCount() int {
	if p == nil {
		return 0
	}
	return len(p.FlatNodes)
}

// Walk visits every node reachable from the roots in pre-order.
func (p *Plan) Walk(fn func(*OperatorNode)) {
	if p == nil {
		return
	}
	var visit func(*OperatorNode)
	visit = func(n *OperatorNode) {
		fn(n)
		for _, child := range n.Children {
			visit(child)
		}
	}
	for _, root := range p.Roots {
		visit(root)
	}
}

// Metric names shared across the three engine parsers. Every parser that can
// derive these writes them under the same keys so the aggregator and the
// renderers stay engine-agnostic.
const (
	MetricProcessingSeconds      = "processing_time"
	MetricSynchronizationSeconds = "synchronization_time"
	MetricWallClockSeconds       = "operator_wall_time"
	MetricRows                   = "rows"
	MetricBytesRead              = "bytes_read"
	MetricBytesWritten           = "bytes_written"
	MetricOverallPercentage      = "overall_percentage"
	MetricProcessingPercentage   = "processing_percentage"
	MetricSyncPercentage         = "synchronization_percentage"
)
