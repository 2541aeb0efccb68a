package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/planbench/planbench/internal/runner"
)

// Result is the document written after a run. The shape mirrors the
// historical results files so existing result directories stay comparable.
type Result struct {
	Timestamp    string  `json:"timestamp"`
	Engine       string  `json:"engine"`
	Iterations   int     `json:"iterations"`
	MemoryLimit  int     `json:"memory_limit_mb,omitempty"`
	Threads      int     `json:"threads,omitempty"`
	InstanceType string  `json:"ec2_instance_type,omitempty"`
	USDPerHour   float64 `json:"usd_per_hour,omitempty"`

	// QueryTimings maps the query number (as a string, historical format)
	// to per-iteration wall-clock seconds.
	QueryTimings map[string][]float64 `json:"query_timings"`

	// Failures records queries that were skipped, keyed by query name.
	Failures map[string]string `json:"failures,omitempty"`
}

// Run executes the suite. One failing query is recorded and skipped; the
// run itself never aborts because of a single bad statement or artifact.
// Progress lines go to log (stderr in the CLI).
func Run(ctx context.Context, suite *Suite, r runner.Runner, log io.Writer) (*Result, error) {
	queries, err := DiscoverQueries(suite.QueriesDir, suite.Queries)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Engine:       suite.Engine,
		Iterations:   suite.Iterations,
		MemoryLimit:  suite.MemoryLimitMB,
		Threads:      suite.Threads,
		InstanceType: suite.InstanceType,
		USDPerHour:   suite.USDPerHour,
		QueryTimings: map[string][]float64{},
		Failures:     map[string]string{},
	}

	for _, q := range queries {
		fmt.Fprintf(log, "=== %s ===\n", q.Name)

		// Capture the plan artifact once, on the first iteration only.
		if suite.OutputDir != "" {
			if err := capturePlan(ctx, suite, r, q); err != nil {
				fmt.Fprintf(log, "  plan capture failed: %v\n", err)
			}
		}

		var timings []float64
		for i := 0; i < suite.Iterations; i++ {
			elapsed, err := r.Execute(ctx, q.SQL)
			if err != nil {
				fmt.Fprintf(log, "  iteration %d/%d failed: %v\n", i+1, suite.Iterations, err)
				result.Failures[q.Name] = err.Error()
				timings = nil
				break
			}
			seconds := elapsed.Seconds()
			timings = append(timings, seconds)
			fmt.Fprintf(log, "  iteration %d/%d: %.2fs\n", i+1, suite.Iterations, seconds)
		}
		if len(timings) > 0 {
			result.QueryTimings[fmt.Sprintf("%d", q.Number)] = timings
		}
	}

	if len(result.Failures) == 0 {
		result.Failures = nil
	}
	return result, nil
}

func capturePlan(ctx context.Context, suite *Suite, r runner.Runner, q Query) error {
	artifact, err := r.Explain(ctx, q.SQL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(suite.OutputDir, 0o755); err != nil {
		return fmt.Errorf("bench: ensure output dir: %w", err)
	}
	path := filepath.Join(suite.OutputDir, fmt.Sprintf("query_%d_plan.txt", q.Number))
	return os.WriteFile(path, artifact, 0o644)
}

// WriteResult serializes the result document as indented JSON.
func WriteResult(path string, result *Result) error {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("bench: marshal result: %w", err)
	}
	payload = append(payload, '\n')
	if path == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("bench: ensure result dir: %w", err)
	}
	return os.WriteFile(path, payload, 0o644)
}

// NewRunner builds the runner the suite asks for: a DSN selects the
// pg-wire runner, a command selects the CLI runner.
func NewRunner(suite *Suite) (runner.Runner, error) {
	opts := runner.Options{}
	if suite.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(suite.TimeoutSeconds) * time.Second
	}
	switch {
	case suite.DSN != "":
		return runner.NewPostgres(suite.DSN, opts)
	case len(suite.Command) > 0:
		prefix := suite.ExplainPrefix
		if prefix == "" {
			prefix = "EXPLAIN ANALYZE "
		}
		return runner.NewCLI(suite.Command, prefix, opts)
	default:
		return nil, fmt.Errorf("bench: suite needs either dsn or command")
	}
}
