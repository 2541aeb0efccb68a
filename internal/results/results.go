// Package results gathers benchmark result documents from disk, averages
// their per-query timings and renders comparison tables across systems.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// System is one benchmarked configuration with averaged query timings.
type System struct {
	Name         string
	Path         string
	Engine       string
	InstanceType string
	USDPerHour   float64
	Iterations   int

	// Averages maps query number to mean wall-clock seconds across
	// iterations.
	Averages map[int]float64
}

// TotalSeconds sums the averaged per-query times.
func (s *System) TotalSeconds() float64 {
	var total float64
	for _, v := range s.Averages {
		total += v
	}
	return total
}

// Cost converts a duration into USD at the system's hourly rate.
func (s *System) Cost(seconds float64) float64 {
	return seconds / 3600.0 * s.USDPerHour
}

// Discover walks baseDir for result documents matching the glob pattern
// (e.g. "*-results.json") and loads each. A file that fails to load is
// reported in the returned slice of problems instead of aborting.
func Discover(baseDir, pattern string) ([]*System, []error) {
	var (
		systems  []*System
		problems []error
	)

	err := filepath.WalkDir(baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, matchErr := filepath.Match(pattern, d.Name())
		if matchErr != nil {
			return matchErr
		}
		if !ok {
			return nil
		}
		system, loadErr := Load(path)
		if loadErr != nil {
			problems = append(problems, loadErr)
			return nil
		}
		systems = append(systems, system)
		return nil
	})
	if err != nil {
		problems = append(problems, fmt.Errorf("results: walk %s: %w", baseDir, err))
	}

	sort.Slice(systems, func(i, j int) bool { return systems[i].Name < systems[j].Name })
	return systems, problems
}

// Load reads one result document and averages its iteration timings.
func Load(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("results: read %s: %w", path, err)
	}

	var doc struct {
		Engine       string   `json:"engine"`
		Mode         string   `json:"mode"`
		InstanceType string   `json:"ec2_instance_type"`
		USDPerHour   float64  `json:"usd_per_hour"`
		Iterations   int      `json:"iterations"`
		QueryTimings byNumber `json:"query_timings"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("results: parse %s: %w", path, err)
	}

	timings := map[int][]float64(doc.QueryTimings)
	if len(timings) == 0 {
		// Historical documents store iteration lists under bare numeric
		// top-level keys.
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err == nil {
			timings = legacyTimings(top)
		}
	}

	system := &System{
		Name:         systemName(doc.Engine, doc.Mode, doc.InstanceType, path),
		Path:         path,
		Engine:       doc.Engine,
		InstanceType: doc.InstanceType,
		USDPerHour:   doc.USDPerHour,
		Iterations:   doc.Iterations,
		Averages:     map[int]float64{},
	}
	for num, values := range timings {
		if len(values) == 0 {
			continue
		}
		var sum float64
		for _, v := range values {
			sum += v
		}
		system.Averages[num] = sum / float64(len(values))
	}
	if len(system.Averages) == 0 {
		return nil, fmt.Errorf("results: %s holds no query timings", path)
	}
	return system, nil
}

// byNumber decodes a {"1": [..], "2": [..]} map keyed by query number.
type byNumber map[int][]float64

func (b *byNumber) UnmarshalJSON(data []byte) error {
	raw := map[string][]float64{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := map[int][]float64{}
	for key, values := range raw {
		num, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[num] = values
	}
	*b = out
	return nil
}

func legacyTimings(top map[string]json.RawMessage) map[int][]float64 {
	out := map[int][]float64{}
	for key, raw := range top {
		num, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var values []float64
		if err := json.Unmarshal(raw, &values); err != nil || len(values) == 0 {
			continue
		}
		out[num] = values
	}
	return out
}

func systemName(engine, mode, instance, path string) string {
	parts := []string{}
	if engine != "" {
		parts = append(parts, engine)
	}
	if mode != "" {
		parts = append(parts, mode)
	}
	if instance != "" {
		parts = append(parts, instance)
	}
	if len(parts) == 0 {
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return strings.Join(parts, "-")
}
