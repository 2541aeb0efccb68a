// Package diff compares two normalized plans and summarizes per-operator
// regressions and improvements.
package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/planbench/planbench/internal/aggregate"
	"github.com/planbench/planbench/internal/config"
	"github.com/planbench/planbench/internal/model"
)

// Options configures the diff sensitivity. Zero values take the active
// config defaults.
type Options struct {
	MinSelfDeltaSeconds float64
	MinPercentChange    float64
	MaxItems            int
}

// Report summarises the delta between two plans.
type Report struct {
	Summary      SummaryDiff `json:"summary"`
	Regressions  []Entry     `json:"regressions"`
	Improvements []Entry     `json:"improvements"`
	Options      Options     `json:"-"`
}

// SummaryDiff covers whole-query differences.
type SummaryDiff struct {
	BaseWallSeconds   float64 `json:"base_wall_seconds"`
	TargetWallSeconds float64 `json:"target_wall_seconds"`
	DeltaWallSeconds  float64 `json:"delta_wall_seconds"`
	PercentWall       float64 `json:"percent_wall"`
	BaseProcessing    float64 `json:"base_processing_seconds"`
	TargetProcessing  float64 `json:"target_processing_seconds"`
	DeltaProcessing   float64 `json:"delta_processing_seconds"`
	PercentProcessing float64 `json:"percent_processing"`
	BaseSyncSeconds   float64 `json:"base_synchronization_seconds"`
	TargetSyncSeconds float64 `json:"target_synchronization_seconds"`
	DeltaSyncSeconds  float64 `json:"delta_synchronization_seconds"`
}

// Entry captures the delta for all operators sharing a type signature.
type Entry struct {
	Signature       string  `json:"signature"`
	BaseSeconds     float64 `json:"base_seconds"`
	TargetSeconds   float64 `json:"target_seconds"`
	DeltaSeconds    float64 `json:"delta_seconds"`
	PercentChange   float64 `json:"percent_change"`
	BaseOperators   int     `json:"base_operators"`
	TargetOperators int     `json:"target_operators"`
}

// Compare builds a diff report between a base and a target plan. Plans from
// different engines are comparable because both sides aggregate by the
// normalized operator type.
func Compare(base, target *model.Plan, opts Options) (*Report, error) {
	if base.Empty() {
		return nil, fmt.Errorf("diff: base plan is empty")
	}
	if target.Empty() {
		return nil, fmt.Errorf("diff: target plan is empty")
	}

	opts = applyDefaults(opts)

	baseAgg := bySignature(base)
	targetAgg := bySignature(target)

	var regressions, improvements []Entry
	for _, sig := range unionKeys(baseAgg, targetAgg) {
		entry := buildEntry(sig, baseAgg[sig], targetAgg[sig])
		switch {
		case passes(entry, opts) && entry.DeltaSeconds > 0:
			regressions = append(regressions, entry)
		case passes(entry, opts) && entry.DeltaSeconds < 0:
			improvements = append(improvements, entry)
		}
	}

	sort.Slice(regressions, func(i, j int) bool {
		return regressions[i].DeltaSeconds > regressions[j].DeltaSeconds
	})
	sort.Slice(improvements, func(i, j int) bool {
		return improvements[i].DeltaSeconds < improvements[j].DeltaSeconds
	})

	if opts.MaxItems > 0 {
		if len(regressions) > opts.MaxItems {
			regressions = regressions[:opts.MaxItems]
		}
		if len(improvements) > opts.MaxItems {
			improvements = improvements[:opts.MaxItems]
		}
	}

	baseTotals := aggregate.Compute(base)
	targetTotals := aggregate.Compute(target)

	return &Report{
		Summary: SummaryDiff{
			BaseWallSeconds:   baseTotals.WallClockSeconds,
			TargetWallSeconds: targetTotals.WallClockSeconds,
			DeltaWallSeconds:  targetTotals.WallClockSeconds - baseTotals.WallClockSeconds,
			PercentWall:       percentChange(baseTotals.WallClockSeconds, targetTotals.WallClockSeconds),
			BaseProcessing:    baseTotals.ProcessingSeconds,
			TargetProcessing:  targetTotals.ProcessingSeconds,
			DeltaProcessing:   targetTotals.ProcessingSeconds - baseTotals.ProcessingSeconds,
			PercentProcessing: percentChange(baseTotals.ProcessingSeconds, targetTotals.ProcessingSeconds),
			BaseSyncSeconds:   baseTotals.SynchronizationSeconds,
			TargetSyncSeconds: targetTotals.SynchronizationSeconds,
			DeltaSyncSeconds:  targetTotals.SynchronizationSeconds - baseTotals.SynchronizationSeconds,
		},
		Regressions:  regressions,
		Improvements: improvements,
		Options:      opts,
	}, nil
}

type sigMetrics struct {
	seconds   float64
	operators int
}

func bySignature(plan *model.Plan) map[string]sigMetrics {
	out := map[string]sigMetrics{}
	for _, fn := range plan.FlatNodes {
		sig := fn.Node.Type
		if sig == "" {
			sig = "(unnamed)"
		}
		m := out[sig]
		m.seconds += fn.Node.MetricOrZero(model.MetricProcessingSeconds)
		m.operators++
		out[sig] = m
	}
	return out
}

func buildEntry(sig string, base, target sigMetrics) Entry {
	return Entry{
		Signature:       sig,
		BaseSeconds:     base.seconds,
		TargetSeconds:   target.seconds,
		DeltaSeconds:    target.seconds - base.seconds,
		PercentChange:   percentChange(base.seconds, target.seconds),
		BaseOperators:   base.operators,
		TargetOperators: target.operators,
	}
}

func passes(entry Entry, opts Options) bool {
	if math.Abs(entry.DeltaSeconds) < opts.MinSelfDeltaSeconds {
		return false
	}
	if entry.BaseSeconds > 0 && math.Abs(entry.PercentChange) < opts.MinPercentChange {
		return false
	}
	return true
}

func applyDefaults(opts Options) Options {
	cfg := config.Active().Diff
	if opts.MinSelfDeltaSeconds <= 0 {
		opts.MinSelfDeltaSeconds = cfg.MinSelfDeltaSeconds
	}
	if opts.MinPercentChange <= 0 {
		opts.MinPercentChange = cfg.MinPercentChange
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = cfg.MaxItems
	}
	return opts
}

func percentChange(base, target float64) float64 {
	if base == 0 {
		if target == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (target - base) / base * 100
}

func unionKeys(a, b map[string]sigMetrics) []string {
	seen := map[string]bool{}
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# planbench diff\n\n")
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Wall clock: %.3f s → %.3f s (%+.3f s, %s)\n",
		r.Summary.BaseWallSeconds, r.Summary.TargetWallSeconds,
		r.Summary.DeltaWallSeconds, formatPercent(r.Summary.PercentWall))
	fmt.Fprintf(&b, "- Processing: %.3f s → %.3f s (%+.3f s, %s)\n",
		r.Summary.BaseProcessing, r.Summary.TargetProcessing,
		r.Summary.DeltaProcessing, formatPercent(r.Summary.PercentProcessing))
	fmt.Fprintf(&b, "- Synchronization: %.3f s → %.3f s (%+.3f s)\n\n",
		r.Summary.BaseSyncSeconds, r.Summary.TargetSyncSeconds, r.Summary.DeltaSyncSeconds)

	writeSection(&b, "Regressions", r.Regressions)
	writeSection(&b, "Improvements", r.Improvements)
	return b.String()
}

func writeSection(b *strings.Builder, title string, entries []Entry) {
	fmt.Fprintf(b, "### %s\n", title)
	if len(entries) == 0 {
		b.WriteString("- None above threshold\n\n")
		return
	}
	b.WriteString("| Operator | Base (s) | Target (s) | Δ (s) | Δ % | Count |\n")
	b.WriteString("|---|---:|---:|---:|---:|---|\n")
	for _, entry := range entries {
		fmt.Fprintf(b, "| %s | %.3f | %.3f | %+.3f | %s | %d → %d |\n",
			entry.Signature,
			entry.BaseSeconds,
			entry.TargetSeconds,
			entry.DeltaSeconds,
			formatPercent(entry.PercentChange),
			entry.BaseOperators,
			entry.TargetOperators)
	}
	b.WriteString("\n")
}

func formatPercent(v float64) string {
	if math.IsInf(v, 1) {
		return "new"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

// JSON marshals the diff report into an indented JSON document.
func (r *Report) JSON() ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	type alias Report
	return json.MarshalIndent((*alias)(r), "", "  ")
}
