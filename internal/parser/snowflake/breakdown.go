package snowflake

import (
	"strings"

	"github.com/planbench/planbench/internal/jsonutil"
	"github.com/planbench/planbench/internal/model"
)

// timeBasis is the representation an operator's EXECUTION_TIME_BREAKDOWN
// uses. The engine chooses per operator and never says which, so the basis
// is decided once by the band heuristic and recorded on the node for audit.
type timeBasis string

const (
	basisFraction timeBasis = "fraction"
	basisPercent  timeBasis = "percentage"
	basisAbsolute timeBasis = "absolute_seconds"
)

// classifyBasis applies the band heuristic: values whose max or sum fall in
// [0, 1.05] are fractions of the query time; a sum in [95, 105] means
// percentages; anything else is taken as absolute time. An operator whose
// true absolute time is near 1.0s can be misclassified here, which is why
// the decision is recorded rather than silently trusted.
func classifyBasis(values []float64) timeBasis {
	if len(values) == 0 {
		return basisAbsolute
	}
	var sum, max float64
	for _, v := range values {
		sum += v
		if v > max {
			max = v
		}
	}
	// Percent wins when both bands hold: ~100 tiny components summing
	// near 100 are percentages, not fractions.
	switch {
	case sum >= 95.0 && sum <= 105.0:
		return basisPercent
	case max <= 1.05 || sum <= 1.05:
		return basisFraction
	default:
		return basisAbsolute
	}
}

// applyStats merges per-operator statistics into the plan nodes and
// converts each breakdown component to absolute seconds. When neither the
// global total nor a per-operator elapsed figure gives a base to scale a
// ratio against, the component contributes 0 rather than failing.
func applyStats(nodes map[int64]*model.OperatorNode, stats []map[string]any, totalSeconds float64) {
	for _, st := range stats {
		node, ok := nodes[jsonutil.AsInt64(st["OPERATOR_ID"])]
		if !ok {
			continue
		}

		breakdown, err := jsonutil.AsObject(st["EXECUTION_TIME_BREAKDOWN"])
		if err != nil {
			continue
		}

		if pct, ok := jsonutil.Float(breakdown["overall_percentage"]); ok {
			node.SetMetric(model.MetricOverallPercentage, pct)
		}

		components := map[string]float64{}
		for _, key := range sortedKeys(breakdown) {
			if key == "overall_percentage" {
				continue
			}
			if v, numeric := jsonutil.Float(breakdown[key]); numeric {
				components[key] = v
			}
		}
		if len(components) == 0 {
			continue
		}

		values := make([]float64, 0, len(components))
		for _, key := range sortedKeys(anyMap(components)) {
			values = append(values, components[key])
		}

		basis := classifyBasis(values)
		base := totalSeconds
		if base <= 0 {
			base = elapsedSeconds(st)
		}

		for name, value := range components {
			node.SetMetric(componentMetric(name), toSeconds(value, basis, base))
		}
		node.SetMetric("breakdown_basis", string(basis))

		if rows, ok := outputRows(st); ok {
			node.SetMetric(model.MetricRows, rows)
		}
	}
}

func toSeconds(value float64, basis timeBasis, baseSeconds float64) float64 {
	switch basis {
	case basisFraction:
		if baseSeconds <= 0 {
			return 0
		}
		return value * baseSeconds
	case basisPercent:
		if baseSeconds <= 0 {
			return 0
		}
		return value / 100.0 * baseSeconds
	default:
		// Large absolute values are milliseconds in disguise.
		if value > 10_000 {
			return value / 1000.0
		}
		return value
	}
}

// componentMetric maps breakdown component names onto the shared metric
// keys so the aggregator reads every engine the same way.
func componentMetric(name string) string {
	switch name {
	case "processing":
		return model.MetricProcessingSeconds
	case "synchronization":
		return model.MetricSynchronizationSeconds
	default:
		return name
	}
}

// elapsedSeconds sniffs a per-operator elapsed figure from any numeric
// field whose name suggests a duration, honoring unit-suffixed names first
// and falling back to a magnitude guess.
func elapsedSeconds(st map[string]any) float64 {
	type candidate struct {
		name  string
		value float64
	}
	var candidates []candidate
	for _, key := range sortedKeys(st) {
		v, numeric := jsonutil.Float(st[key])
		if !numeric {
			continue
		}
		name := strings.ToLower(key)
		if strings.Contains(name, "elapsed") || strings.Contains(name, "duration") || strings.Contains(name, "time") {
			candidates = append(candidates, candidate{name: name, value: v})
		}
	}

	for _, c := range candidates {
		switch {
		case strings.HasSuffix(c.name, "_ms") || strings.Contains(c.name, "millis") || strings.HasSuffix(c.name, "milliseconds"):
			return c.value / 1000.0
		case strings.HasSuffix(c.name, "_us") || strings.Contains(c.name, "micros") || strings.HasSuffix(c.name, "microseconds"):
			return c.value / 1_000_000.0
		case strings.HasSuffix(c.name, "_ns") || strings.Contains(c.name, "nanos") || strings.HasSuffix(c.name, "nanoseconds"):
			return c.value / 1_000_000_000.0
		}
	}

	if len(candidates) > 0 {
		v := candidates[0].value
		if v > 10_000 {
			return v / 1000.0
		}
		return v
	}
	return 0
}

func outputRows(st map[string]any) (int64, bool) {
	opStats, err := jsonutil.AsObject(st["OPERATOR_STATISTICS"])
	if err != nil {
		return 0, false
	}
	if rows, ok := jsonutil.Float(opStats["output_rows"]); ok {
		return int64(rows), true
	}
	return 0, false
}

func anyMap(m map[string]float64) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
