package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/planbench/planbench/internal/aggregate"
	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/internal/tree"
)

func samplePlan() *model.Plan {
	leaf := &model.OperatorNode{Type: "TableScan", Detail: "events", Depth: 2}
	leaf.SetMetric(model.MetricProcessingSeconds, 0.5)
	leaf.SetMetric(model.MetricSynchronizationSeconds, 0.1)
	leaf.SetMetric(model.MetricRows, int64(100))

	mid := &model.OperatorNode{Type: "Aggregate", Depth: 1, Children: []*model.OperatorNode{leaf}}
	mid.SetMetric(model.MetricProcessingSeconds, 0.25)

	root := &model.OperatorNode{Type: "Query", Depth: 0, Children: []*model.OperatorNode{mid}}
	root.SetMetric(model.MetricWallClockSeconds, 1.0)

	plan := &model.Plan{QueryTitle: "q7", Roots: []*model.OperatorNode{root}}
	tree.Assemble(plan)
	return plan
}

func TestRenderTree(t *testing.T) {
	plan := samplePlan()
	totals := aggregate.Compute(plan)

	var buf bytes.Buffer
	if err := Render(&buf, plan, totals, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Query: q7",
		"Wall clock 1.000 s",
		"`-- Aggregate",
		"`-- TableScan (events)",
		"proc 0.5000 s",
		"sync 0.1000 s",
		"rows 100",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("colors must be off by default:\n%q", out)
	}
}

func TestRenderColors(t *testing.T) {
	plan := samplePlan()
	totals := aggregate.Compute(plan)

	var buf bytes.Buffer
	if err := Render(&buf, plan, totals, Options{EnableColor: true}); err != nil {
		t.Fatalf("render: %v", err)
	}
	// The 50% scan crosses the red threshold.
	if !strings.Contains(buf.String(), "\033[31m") {
		t.Fatalf("expected red bar in output:\n%q", buf.String())
	}
}

func TestRenderMaxDepthElides(t *testing.T) {
	plan := samplePlan()
	totals := aggregate.Compute(plan)

	var buf bytes.Buffer
	if err := Render(&buf, plan, totals, Options{MaxDepth: 1}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "TableScan") {
		t.Fatalf("nodes past max depth must be elided:\n%s", out)
	}
	if !strings.Contains(out, "... (1 more nodes)") {
		t.Fatalf("elision marker missing:\n%s", out)
	}
}

func TestRenderEmptyPlan(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, &model.Plan{}, aggregate.Totals{}, Options{}); err == nil {
		t.Fatalf("expected error for empty plan")
	}
}

func TestDrawBar(t *testing.T) {
	if got := drawBar(0.5, 10); got != "#####-----" {
		t.Fatalf("drawBar(0.5) = %q", got)
	}
	if got := drawBar(0, 4); got != "----" {
		t.Fatalf("drawBar(0) = %q", got)
	}
	// A non-zero share always shows at least one tick.
	if got := drawBar(0.001, 10); got != "#---------" {
		t.Fatalf("drawBar(0.001) = %q", got)
	}
	if got := drawBar(2.0, 4); got != "####" {
		t.Fatalf("drawBar clamps over 100%%: %q", got)
	}
}
