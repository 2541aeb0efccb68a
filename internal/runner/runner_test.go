package runner

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestNewCLIValidation(t *testing.T) {
	if _, err := NewCLI(nil, "", Options{}); err == nil {
		t.Fatalf("expected error for empty command")
	}
	if _, err := NewCLI([]string{"  "}, "", Options{}); err == nil {
		t.Fatalf("expected error for blank binary name")
	}
	if _, err := NewCLI([]string{"duckdb", "bench.db"}, "EXPLAIN ANALYZE ", Options{}); err != nil {
		t.Fatalf("valid command rejected: %v", err)
	}
}

func TestNewPostgresValidation(t *testing.T) {
	if _, err := NewPostgres("", Options{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
	if _, err := NewPostgres("postgres://localhost:5432/bench", Options{}); err != nil {
		t.Fatalf("valid DSN rejected: %v", err)
	}
}

func TestCLIExplainPrependsPrefix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on cat")
	}
	// cat echoes stdin back, so the artifact is exactly the statement the
	// runner fed the engine.
	c, err := NewCLI([]string{"cat"}, "EXPLAIN ANALYZE ", Options{})
	if err != nil {
		t.Fatalf("new cli: %v", err)
	}

	artifact, err := c.Explain(context.Background(), "SELECT 1;")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if string(artifact) != "EXPLAIN ANALYZE SELECT 1;" {
		t.Fatalf("artifact = %q", artifact)
	}
}

func TestCLIExecuteEmptyStatement(t *testing.T) {
	c, err := NewCLI([]string{"cat"}, "", Options{})
	if err != nil {
		t.Fatalf("new cli: %v", err)
	}
	if _, err := c.Execute(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty statement")
	}
}

func TestCLIReportsStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}
	c, err := NewCLI([]string{"sh", "-c", "echo broken >&2; exit 3"}, "", Options{})
	if err != nil {
		t.Fatalf("new cli: %v", err)
	}
	_, err = c.Execute(context.Background(), "SELECT 1;")
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("stderr detail missing from error: %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), Options{Timeout: time.Minute})
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatalf("expected a deadline")
	}

	ctx, cancel = withTimeout(context.Background(), Options{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("expected no deadline without a timeout option")
	}
}
