// Package aggregate derives whole-query totals and hot-operator rankings
// from a normalized plan.
package aggregate

import (
	"sort"

	"github.com/planbench/planbench/internal/config"
	"github.com/planbench/planbench/internal/model"
)

// Totals summarizes a parsed plan. Percentages are relative to the root
// wall-clock time and defined as 0 when that time is unknown or zero.
type Totals struct {
	WallClockSeconds       float64
	ProcessingSeconds      float64
	SynchronizationSeconds float64
	ProcessingPercent      float64
	SynchronizationPercent float64
	NodeCount              int
	HotOperators           []HotOperator
}

// HotOperator is one operator ranked by its share of the wall clock.
type HotOperator struct {
	ID                int
	Node              *model.OperatorNode
	ProcessingSeconds float64
	Share             float64
}

// Compute walks the flattened plan and sums per-operator processing and
// synchronization time. The flat list is already de-duplicated by the tree
// assembler, so shared nodes are counted once.
func Compute(plan *model.Plan) Totals {
	totals := Totals{}
	if plan == nil {
		return totals
	}
	totals.NodeCount = len(plan.FlatNodes)
	totals.WallClockSeconds = rootWallClock(plan)

	for _, fn := range plan.FlatNodes {
		totals.ProcessingSeconds += fn.Node.MetricOrZero(model.MetricProcessingSeconds)
		totals.SynchronizationSeconds += fn.Node.MetricOrZero(model.MetricSynchronizationSeconds)
	}

	if totals.WallClockSeconds > 0 {
		totals.ProcessingPercent = 100 * totals.ProcessingSeconds / totals.WallClockSeconds
		totals.SynchronizationPercent = 100 * totals.SynchronizationSeconds / totals.WallClockSeconds
	}

	totals.HotOperators = selectHot(plan, totals.WallClockSeconds)
	return totals
}

// selectHot ranks operators by processing share of the wall clock, keeping
// those above the configured cutoff up to the configured limit. Without a
// usable wall clock the ranking falls back to raw processing seconds.
func selectHot(plan *model.Plan, wallClock float64) []HotOperator {
	cfg := config.Active().Report

	candidates := make([]HotOperator, 0, len(plan.FlatNodes))
	for _, fn := range plan.FlatNodes {
		processing := fn.Node.MetricOrZero(model.MetricProcessingSeconds)
		if processing <= 0 {
			continue
		}
		hot := HotOperator{ID: fn.ID, Node: fn.Node, ProcessingSeconds: processing}
		if wallClock > 0 {
			hot.Share = processing / wallClock
		}
		candidates = append(candidates, hot)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ProcessingSeconds != candidates[j].ProcessingSeconds {
			return candidates[i].ProcessingSeconds > candidates[j].ProcessingSeconds
		}
		return candidates[i].ID < candidates[j].ID
	})

	limit := cfg.HotOperatorLimit
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	var out []HotOperator
	for _, c := range candidates[:limit] {
		if wallClock > 0 && c.Share < cfg.HotOperatorShare {
			break
		}
		out = append(out, c)
	}
	if len(out) == 0 && len(candidates) > 0 {
		out = candidates[:limit]
	}
	return out
}

// rootWallClock reads the whole-query wall clock the parsers record on the
// first root; DataFusion plans fall back to the first elapsed ping.
func rootWallClock(plan *model.Plan) float64 {
	if len(plan.Roots) > 0 {
		if wall, ok := plan.Roots[0].Metric(model.MetricWallClockSeconds); ok && wall > 0 {
			return wall
		}
	}
	if len(plan.ElapsedPings) > 0 {
		return plan.ElapsedPings[0]
	}
	return 0
}
