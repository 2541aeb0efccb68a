package store

import (
	"path/filepath"
	"testing"

	"github.com/planbench/planbench/internal/bench"
)

func openCatalog(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.sqlite"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListRuns(t *testing.T) {
	s := openCatalog(t)

	result := &bench.Result{
		Timestamp:    "2026-08-29T10:00:00Z",
		Engine:       "duckdb",
		Iterations:   3,
		InstanceType: "c6a.4xlarge",
		USDPerHour:   0.612,
		QueryTimings: map[string][]float64{
			"1": {1.0, 2.0, 3.0},
			"2": {0.5},
		},
	}

	runID, err := s.SaveRun(result)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if runID == 0 {
		t.Fatalf("run id = 0")
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs", len(runs))
	}
	run := runs[0]
	if run.Engine != "duckdb" || run.InstanceType != "c6a.4xlarge" || run.QueryCount != 2 {
		t.Fatalf("run = %+v", run)
	}
	if run.StartedAt.IsZero() {
		t.Fatalf("started_at not parsed")
	}

	averages, err := s.QueryAverages(runID)
	if err != nil {
		t.Fatalf("query averages: %v", err)
	}
	if averages[1] != 2.0 || averages[2] != 0.5 {
		t.Fatalf("averages = %v", averages)
	}
}

func TestListRunsOrderedNewestFirst(t *testing.T) {
	s := openCatalog(t)

	for _, ts := range []string{"2026-08-27T00:00:00Z", "2026-08-29T00:00:00Z", "2026-08-28T00:00:00Z"} {
		_, err := s.SaveRun(&bench.Result{
			Timestamp:    ts,
			Engine:       "datafusion",
			QueryTimings: map[string][]float64{"1": {1.0}},
		})
		if err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) || !runs[1].StartedAt.After(runs[2].StartedAt) {
		t.Fatalf("runs not ordered newest first: %v, %v, %v",
			runs[0].StartedAt, runs[1].StartedAt, runs[2].StartedAt)
	}
}

func TestSaveRunSkipsNonNumericKeys(t *testing.T) {
	s := openCatalog(t)

	runID, err := s.SaveRun(&bench.Result{
		Timestamp: "2026-08-29T00:00:00Z",
		Engine:    "duckdb",
		QueryTimings: map[string][]float64{
			"1":     {1.0},
			"notes": {9.9},
		},
	})
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	averages, err := s.QueryAverages(runID)
	if err != nil {
		t.Fatalf("query averages: %v", err)
	}
	if len(averages) != 1 {
		t.Fatalf("non-numeric key leaked into timings: %v", averages)
	}
}

func TestSaveRunNilResult(t *testing.T) {
	s := openCatalog(t)
	if _, err := s.SaveRun(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
}
