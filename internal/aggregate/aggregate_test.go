package aggregate

import (
	"testing"

	"github.com/planbench/planbench/internal/config"
	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/internal/tree"
)

func buildPlan(root *model.OperatorNode) *model.Plan {
	plan := &model.Plan{Roots: []*model.OperatorNode{root}}
	tree.Assemble(plan)
	return plan
}

func timedOp(name string, processing, sync float64, children ...*model.OperatorNode) *model.OperatorNode {
	n := &model.OperatorNode{Type: name, Children: children}
	n.SetMetric(model.MetricProcessingSeconds, processing)
	n.SetMetric(model.MetricSynchronizationSeconds, sync)
	return n
}

func TestComputeTotals(t *testing.T) {
	scan := timedOp("Scan", 1.5, 0.5)
	join := timedOp("Join", 0.5, 0.0, scan)
	root := timedOp("Root", 0.0, 0.0, join)
	root.SetMetric(model.MetricWallClockSeconds, 4.0)

	totals := Compute(buildPlan(root))

	if totals.WallClockSeconds != 4.0 {
		t.Fatalf("wall clock = %v", totals.WallClockSeconds)
	}
	if totals.ProcessingSeconds != 2.0 {
		t.Fatalf("processing = %v", totals.ProcessingSeconds)
	}
	if totals.SynchronizationSeconds != 0.5 {
		t.Fatalf("synchronization = %v", totals.SynchronizationSeconds)
	}
	if totals.ProcessingPercent != 50.0 {
		t.Fatalf("processing percent = %v", totals.ProcessingPercent)
	}
	if totals.SynchronizationPercent != 12.5 {
		t.Fatalf("synchronization percent = %v", totals.SynchronizationPercent)
	}
	if totals.NodeCount != 3 {
		t.Fatalf("node count = %v", totals.NodeCount)
	}
}

func TestComputeZeroWallClock(t *testing.T) {
	root := timedOp("Root", 1.0, 0.5)

	totals := Compute(buildPlan(root))

	if totals.WallClockSeconds != 0 {
		t.Fatalf("wall clock = %v", totals.WallClockSeconds)
	}
	if totals.ProcessingPercent != 0 || totals.SynchronizationPercent != 0 {
		t.Fatalf("percentages must be 0 at zero wall clock, got %v / %v",
			totals.ProcessingPercent, totals.SynchronizationPercent)
	}
}

func TestComputeFallsBackToElapsedPing(t *testing.T) {
	root := timedOp("Root", 1.0, 0.0)
	plan := buildPlan(root)
	plan.ElapsedPings = []float64{2.0}

	totals := Compute(plan)

	if totals.WallClockSeconds != 2.0 {
		t.Fatalf("wall clock should come from the elapsed ping, got %v", totals.WallClockSeconds)
	}
	if totals.ProcessingPercent != 50.0 {
		t.Fatalf("processing percent = %v", totals.ProcessingPercent)
	}
}

func TestSelectHotRespectsCutoffAndLimit(t *testing.T) {
	config.Use(config.Default())
	t.Cleanup(func() { config.Use(config.Default()) })

	cfg := config.Default()
	cfg.Report.HotOperatorShare = 0.20
	cfg.Report.HotOperatorLimit = 2
	config.Use(cfg)

	big := timedOp("Big", 2.0, 0)
	mid := timedOp("Mid", 1.0, 0)
	small := timedOp("Small", 0.1, 0)
	root := timedOp("Root", 0, 0, big, mid, small)
	root.SetMetric(model.MetricWallClockSeconds, 4.0)

	totals := Compute(buildPlan(root))

	if len(totals.HotOperators) != 2 {
		t.Fatalf("got %d hot operators, want 2", len(totals.HotOperators))
	}
	if totals.HotOperators[0].Node.Type != "Big" || totals.HotOperators[1].Node.Type != "Mid" {
		t.Fatalf("hot ranking = %s, %s", totals.HotOperators[0].Node.Type, totals.HotOperators[1].Node.Type)
	}
	if totals.HotOperators[0].Share != 0.5 {
		t.Fatalf("top share = %v", totals.HotOperators[0].Share)
	}
}

func TestSelectHotFallbackWhenNoneQualify(t *testing.T) {
	config.Use(config.Default())
	t.Cleanup(func() { config.Use(config.Default()) })

	// All operators are below the cutoff; the top ones are still reported
	// so a report never shows an empty hot list for a plan with work in it.
	tiny := timedOp("Tiny", 0.01, 0)
	root := timedOp("Root", 0, 0, tiny)
	root.SetMetric(model.MetricWallClockSeconds, 100.0)

	totals := Compute(buildPlan(root))

	if len(totals.HotOperators) == 0 {
		t.Fatalf("expected fallback hot operators")
	}
	if totals.HotOperators[0].Node.Type != "Tiny" {
		t.Fatalf("fallback picked %s", totals.HotOperators[0].Node.Type)
	}
}

func TestComputeNilPlan(t *testing.T) {
	totals := Compute(nil)
	if totals.NodeCount != 0 || len(totals.HotOperators) != 0 {
		t.Fatalf("nil plan must produce zero totals: %+v", totals)
	}
}
