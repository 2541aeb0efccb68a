// Package units converts engine-specific unit-suffixed metric strings into
// canonical numeric values: float64 seconds for durations, int64 for bytes
// and counts. Anything it cannot classify passes through unchanged; the
// package never returns an error.
package units

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	intRe   = regexp.MustCompile(`^[+-]?\d+$`)
	floatRe = regexp.MustCompile(`^[+-]?\d+\.\d+$`)
)

// Seconds converts a duration string to seconds. Recognized suffixes are
// "s" (when not part of ms/µs/us/ns), "ms", "µs"/"μs"/"us" and "ns"; a bare
// number is taken as seconds already. The unicode micro sign and the Greek
// mu are folded together before matching.
func Seconds(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "μs", "µs")
	if s == "" {
		return 0, false
	}

	var trimmed string
	var div float64
	switch {
	case strings.HasSuffix(s, "ms"):
		trimmed, div = strings.TrimSuffix(s, "ms"), 1_000
	case strings.HasSuffix(s, "µs"):
		trimmed, div = strings.TrimSuffix(s, "µs"), 1_000_000
	case strings.HasSuffix(s, "us"):
		trimmed, div = strings.TrimSuffix(s, "us"), 1_000_000
	case strings.HasSuffix(s, "ns"):
		trimmed, div = strings.TrimSuffix(s, "ns"), 1_000_000_000
	case strings.HasSuffix(s, "s"):
		trimmed, div = strings.TrimSuffix(s, "s"), 1
	default:
		trimmed, div = s, 1
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil {
		return 0, false
	}
	return f / div, true
}

// HasDurationSuffix reports whether the string carries an explicit duration
// unit, which is what distinguishes "1.5s" from a bare float.
func HasDurationSuffix(raw string) bool {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "μs", "µs")
	for _, suffix := range []string{"ms", "µs", "us", "ns", "s"} {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// Bytes converts a byte string to an integer byte count. Accepted forms are
// a trailing literal " B" (float payloads are rounded down) or a plain
// integer.
func Bytes(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, " B") {
		num := strings.TrimSpace(strings.TrimSuffix(s, " B"))
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, false
		}
		return int64(f), true
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Normalize classifies a raw metric string. Order matters: byte counts
// first (bare digit runs stay integers, never byte-suffixed guesses), then
// unit-suffixed durations, then plain ints, then floats, then the original
// string as an opaque passthrough.
func Normalize(raw string) any {
	s := strings.TrimSpace(raw)

	if b, ok := Bytes(s); ok {
		return b
	}
	if HasDurationSuffix(s) {
		if sec, ok := Seconds(s); ok {
			return Duration{Seconds: sec, Raw: s}
		}
	}
	if intRe.MatchString(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	if floatRe.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return raw
}

// Duration is the tagged result of normalizing a unit-suffixed duration.
// The raw engine string is kept so reports can echo what the engine said.
type Duration struct {
	Seconds float64
	Raw     string
}

// NormalizeValue normalizes a value that may already be numeric. Numbers are
// returned unchanged, which makes re-normalization a no-op.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return Normalize(t)
	case float64, int64, int, Duration:
		return v
	case float32:
		return float64(t)
	default:
		return v
	}
}
