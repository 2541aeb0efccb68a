package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLI drives an engine through its command-line binary (duckdb,
// datafusion-cli), feeding SQL on stdin and capturing stdout.
type CLI struct {
	// Command is the binary plus fixed arguments, e.g.
	// []string{"duckdb", "-json", "bench.db"}.
	Command []string
	// ExplainPrefix is prepended to the statement when capturing a plan,
	// e.g. "EXPLAIN ANALYZE ".
	ExplainPrefix string
	Opts          Options
}

// NewCLI validates the command line up front.
func NewCLI(command []string, explainPrefix string, opts Options) (*CLI, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, fmt.Errorf("runner: empty engine command")
	}
	return &CLI{Command: command, ExplainPrefix: explainPrefix, Opts: opts}, nil
}

// Execute runs the statement through the engine CLI and reports elapsed
// wall-clock time.
func (c *CLI) Execute(ctx context.Context, sqlStatement string) (time.Duration, error) {
	start := time.Now()
	if _, err := c.run(ctx, sqlStatement); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Explain runs the statement under the explain prefix and returns the raw
// CLI output as the plan artifact.
func (c *CLI) Explain(ctx context.Context, sqlStatement string) ([]byte, error) {
	return c.run(ctx, c.ExplainPrefix+sqlStatement)
}

func (c *CLI) run(ctx context.Context, input string) ([]byte, error) {
	statement := strings.TrimSpace(input)
	if statement == "" {
		return nil, fmt.Errorf("runner: empty sql statement")
	}

	ctx, cancel := withTimeout(ctx, c.Opts)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Stdin = strings.NewReader(statement)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("runner: %s: %w: %s", c.Command[0], err, detail)
		}
		return nil, fmt.Errorf("runner: %s: %w", c.Command[0], err)
	}
	return stdout.Bytes(), nil
}
