package duckdb

import (
	"os"
	"strings"
	"testing"

	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/test"
)

func TestParseSampleProfile(t *testing.T) {
	f, err := os.Open(test.SamplePath(t, "duckdb_profile.json"))
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	defer func() { _ = f.Close() }()

	plan, err := Parse(f)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if plan.QueryTitle != "q3 sessions per hour" {
		t.Fatalf("query title = %q", plan.QueryTitle)
	}
	if len(plan.Roots) != 1 {
		t.Fatalf("got %d roots", len(plan.Roots))
	}

	root := plan.Roots[0]
	if root.Type != "Query" {
		t.Fatalf("synthetic root type = %q", root.Type)
	}
	if root.MetricOrZero(model.MetricWallClockSeconds) != 2.0 {
		t.Fatalf("root wall clock = %v", root.MetricOrZero(model.MetricWallClockSeconds))
	}

	// The unnamed wrapper level is skipped; the group-by hangs directly
	// off the synthetic root.
	if len(root.Children) != 1 {
		t.Fatalf("root has %d children, want 1", len(root.Children))
	}
	groupBy := root.Children[0]
	if groupBy.Type != "HASH_GROUP_BY" {
		t.Fatalf("first operator = %q", groupBy.Type)
	}

	// CPU time (3.0) exceeds the operator wall time (2.0) under
	// parallelism, so wall time caps the processing estimate.
	if got := groupBy.MetricOrZero(model.MetricProcessingSeconds); got != 2.0 {
		t.Fatalf("processing = %v, want 2.0", got)
	}
	if got := groupBy.MetricOrZero(model.MetricSynchronizationSeconds); got != 0.5 {
		t.Fatalf("synchronization = %v, want 0.5", got)
	}
	if got := groupBy.MetricOrZero(model.MetricProcessingPercentage); got != 100.0 {
		t.Fatalf("processing percentage = %v, want 100", got)
	}
	if got := groupBy.MetricOrZero(model.MetricSyncPercentage); got != 25.0 {
		t.Fatalf("synchronization percentage = %v, want 25", got)
	}
	if !strings.Contains(groupBy.Detail, "Groups=hour") {
		t.Fatalf("group-by detail = %q", groupBy.Detail)
	}

	if len(groupBy.Children) != 1 {
		t.Fatalf("group-by has %d children", len(groupBy.Children))
	}
	scan := groupBy.Children[0]
	if scan.Type != "TABLE_SCAN" {
		t.Fatalf("scan type = %q", scan.Type)
	}
	if got := scan.Metrics[model.MetricRows]; got != int64(100000) {
		t.Fatalf("scan rows = %#v", got)
	}
	if got := scan.Metrics[model.MetricBytesRead]; got != int64(1048576) {
		t.Fatalf("bytes read = %#v", got)
	}
}

func TestParseZeroLatencyYieldsZeroShares(t *testing.T) {
	payload := `{
		"latency": 0,
		"children": [
			{"operator_type": "PROJECTION", "operator_timing": 0.0, "cpu_time": 0.0, "children": []}
		]
	}`
	plan, err := Parse(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	proj := plan.Roots[0].Children[0]
	if got := proj.MetricOrZero(model.MetricProcessingPercentage); got != 0 {
		t.Fatalf("processing percentage = %v, want 0 at zero wall clock", got)
	}
	if got := proj.MetricOrZero(model.MetricOverallPercentage); got != 0 {
		t.Fatalf("overall percentage = %v, want 0 at zero wall clock", got)
	}
}

func TestParseMissingCPUTimeFallsBackToTiming(t *testing.T) {
	payload := `{
		"latency": 1.0,
		"children": [
			{"operator_type": "FILTER", "operator_timing": 0.4, "children": []}
		]
	}`
	plan, err := Parse(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	filter := plan.Roots[0].Children[0]
	if got := filter.MetricOrZero(model.MetricProcessingSeconds); got != 0.4 {
		t.Fatalf("processing = %v, want operator_timing fallback 0.4", got)
	}
}

func TestParseNoOperatorsYieldsEmptyPlan(t *testing.T) {
	plan, err := Parse(strings.NewReader(`{"result": "ok"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !plan.Empty() {
		t.Fatalf("expected empty plan")
	}
}

func TestParseRejectsUndecodableJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader("not json at all")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParseLatencyFoundInNestedChild(t *testing.T) {
	payload := `{
		"children": [
			{"children": [
				{"operator_type": "SCAN", "latency": 3.5, "operator_timing": 1.0, "children": []}
			]}
		]
	}`
	plan, err := Parse(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := plan.Roots[0].MetricOrZero(model.MetricWallClockSeconds); got != 3.5 {
		t.Fatalf("nested latency not found: %v", got)
	}
}
