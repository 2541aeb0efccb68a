package snowflake

import (
	"math"
	"os"
	"testing"

	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/test"
)

func TestParseSampleCapture(t *testing.T) {
	data, err := os.ReadFile(test.SamplePath(t, "snowflake_capture.txt"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	plan, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(plan.Roots) != 1 {
		t.Fatalf("got %d roots", len(plan.Roots))
	}
	root := plan.Roots[0]
	if root.Type != "Result" {
		t.Fatalf("root type = %q", root.Type)
	}
	if got := root.MetricOrZero(model.MetricWallClockSeconds); got != 3.5 {
		t.Fatalf("root wall clock = %v, want TOTAL_ELAPSED_TIME/1000", got)
	}

	// Result -> Sort -> Aggregate -> TableScan, parent links inverted into
	// a tree.
	sortNode := root.Children[0]
	if sortNode.Type != "Sort" || sortNode.Detail != "ORDER BY PAGE_COUNT DESC NULLS LAST" {
		t.Fatalf("sort = %s %q", sortNode.Type, sortNode.Detail)
	}
	agg := sortNode.Children[0]
	if agg.Type != "Aggregate" || agg.Detail != "GROUP BY EVENTS.PAGE_URLPATH" {
		t.Fatalf("aggregate = %s %q", agg.Type, agg.Detail)
	}
	scan := agg.Children[0]
	if scan.Type != "TableScan" || scan.Detail != "EVENTS partitions 12/12" {
		t.Fatalf("scan = %s %q", scan.Type, scan.Detail)
	}
	if scan.Depth != 3 {
		t.Fatalf("scan depth = %d", scan.Depth)
	}

	// Breakdown values are fractions of the 3.5s total.
	if got := scan.MetricOrZero(model.MetricProcessingSeconds); !approx(got, 1.75) {
		t.Fatalf("scan processing = %v, want 1.75", got)
	}
	if got := scan.MetricOrZero(model.MetricSynchronizationSeconds); !approx(got, 0.35) {
		t.Fatalf("scan synchronization = %v, want 0.35", got)
	}
	if got := scan.Metrics["breakdown_basis"]; got != "fraction" {
		t.Fatalf("breakdown basis = %#v", got)
	}
	if got := scan.MetricOrZero(model.MetricOverallPercentage); got != 0.62 {
		t.Fatalf("overall percentage = %v", got)
	}
	if got := scan.Metrics[model.MetricRows]; got != int64(100000) {
		t.Fatalf("scan rows = %#v", got)
	}
	if got := agg.Metrics[model.MetricRows]; got != int64(1200) {
		t.Fatalf("aggregate rows = %#v", got)
	}
}

func TestClassifyBasis(t *testing.T) {
	// 100 components of 1.0 sit in both bands (max 1.0, sum 100); the
	// percent reading wins.
	unitComponents := make([]float64, 100)
	for i := range unitComponents {
		unitComponents[i] = 1.0
	}

	cases := []struct {
		name   string
		values []float64
		want   timeBasis
	}{
		{"fractions", []float64{0.5, 0.3, 0.2}, basisFraction},
		{"single fraction", []float64{1.0}, basisFraction},
		{"percentages", []float64{60, 30, 10}, basisPercent},
		{"both bands prefer percent", unitComponents, basisPercent},
		{"absolute seconds", []float64{12.5, 3.0}, basisAbsolute},
		{"absolute milliseconds", []float64{25000, 11000}, basisAbsolute},
		{"empty", nil, basisAbsolute},
	}
	for _, tc := range cases {
		if got := classifyBasis(tc.values); got != tc.want {
			t.Fatalf("%s: classifyBasis(%v) = %v, want %v", tc.name, tc.values, got, tc.want)
		}
	}
}

func TestToSeconds(t *testing.T) {
	if got := toSeconds(0.5, basisFraction, 10); got != 5.0 {
		t.Fatalf("fraction: %v", got)
	}
	if got := toSeconds(25, basisPercent, 4); got != 1.0 {
		t.Fatalf("percent: %v", got)
	}
	if got := toSeconds(2.5, basisAbsolute, 0); got != 2.5 {
		t.Fatalf("absolute: %v", got)
	}
	// Values past the magnitude guard are milliseconds in disguise.
	if got := toSeconds(25000, basisAbsolute, 0); got != 25.0 {
		t.Fatalf("absolute ms: %v", got)
	}
	// A ratio with no base to scale against degrades to zero.
	if got := toSeconds(0.5, basisFraction, 0); got != 0 {
		t.Fatalf("fraction without base: %v", got)
	}
	if got := toSeconds(25, basisPercent, 0); got != 0 {
		t.Fatalf("percent without base: %v", got)
	}
}

func TestElapsedSecondsSniffing(t *testing.T) {
	if got := elapsedSeconds(map[string]any{"ELAPSED_TIME_MS": 1500.0}); got != 1.5 {
		t.Fatalf("ms suffix: %v", got)
	}
	if got := elapsedSeconds(map[string]any{"QUERY_DURATION_US": 2500000.0}); got != 2.5 {
		t.Fatalf("us suffix: %v", got)
	}
	// A bare large magnitude with a duration-ish name is treated as ms.
	if got := elapsedSeconds(map[string]any{"EXECUTION_TIME": 35000.0}); got != 35.0 {
		t.Fatalf("magnitude guess: %v", got)
	}
	if got := elapsedSeconds(map[string]any{"ROWS": 99.0}); got != 0 {
		t.Fatalf("non-duration field: %v", got)
	}
}

func TestParseUnattachedOperatorBecomesRoot(t *testing.T) {
	payload := []byte(`{
		"Operations": [[
			{"id": 0, "operation": "Result", "parentOperators": []},
			{"id": 7, "operation": "TableScan", "parentOperators": [99]}
		]]
	}`)
	plan, err := Parse(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(plan.Roots) != 2 {
		t.Fatalf("got %d roots, want 2 (dangling parent id promotes to root)", len(plan.Roots))
	}
}

func TestParseEmptyOperations(t *testing.T) {
	plan, err := Parse([]byte(`{"Operations": []}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !plan.Empty() {
		t.Fatalf("expected empty plan")
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
