// Package bench orchestrates a benchmark run: load the suite definition,
// discover queries, drive the engine runner per iteration and record the
// result document.
package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Suite is the on-disk benchmark definition (YAML).
type Suite struct {
	Engine     string `yaml:"engine"`
	QueriesDir string `yaml:"queries_dir"`
	Iterations int    `yaml:"iterations"`

	// Engine connection: either a DSN for pg-wire engines or a CLI command.
	DSN           string   `yaml:"dsn"`
	Command       []string `yaml:"command"`
	ExplainPrefix string   `yaml:"explain_prefix"`

	// Engine tuning, recorded into the result document verbatim.
	MemoryLimitMB int `yaml:"memory_limit_mb"`
	Threads       int `yaml:"threads"`

	// Run metadata for cost arithmetic and result labeling.
	InstanceType string  `yaml:"instance_type"`
	USDPerHour   float64 `yaml:"usd_per_hour"`

	// Queries restricts the run to specific query numbers; empty means all.
	Queries []int `yaml:"queries"`

	TimeoutSeconds int    `yaml:"timeout_seconds"`
	OutputDir      string `yaml:"output_dir"`
}

// LoadSuite reads and validates a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bench: read suite: %w", err)
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("bench: parse suite: %w", err)
	}
	if suite.Engine == "" {
		return nil, fmt.Errorf("bench: suite is missing engine")
	}
	if suite.QueriesDir == "" {
		return nil, fmt.Errorf("bench: suite is missing queries_dir")
	}
	if suite.Iterations <= 0 {
		suite.Iterations = 3
	}
	return &suite, nil
}

// Query is one discovered benchmark statement.
type Query struct {
	Number int
	Name   string
	SQL    string
}

var queryNumberRe = regexp.MustCompile(`q(\d+)`)

// DiscoverQueries finds qNN.sql files under dir in numeric order,
// optionally restricted to the given query numbers.
func DiscoverQueries(dir string, only []int) ([]Query, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "q*.sql"))
	if err != nil {
		return nil, fmt.Errorf("bench: scan queries dir: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("bench: no q*.sql files under %s", dir)
	}

	wanted := map[int]bool{}
	for _, n := range only {
		wanted[n] = true
	}

	var queries []Query
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".sql")
		m := queryNumberRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if len(wanted) > 0 && !wanted[num] {
			continue
		}
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("bench: read %s: %w", path, err)
		}
		queries = append(queries, Query{Number: num, Name: name, SQL: string(sqlBytes)})
	}

	sort.Slice(queries, func(i, j int) bool { return queries[i].Number < queries[j].Number })
	return queries, nil
}
