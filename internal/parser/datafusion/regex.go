package datafusion

import "regexp"

var (
	headerRe  = regexp.MustCompile(`(?i)\|\s*plan_type\s*\|\s*plan\s*\|`)
	borderRe  = regexp.MustCompile(`^\+[-+]+\+$`)
	metricsRe = regexp.MustCompile(`metrics=\[(.*?)\]\s*$`)
	keyValRe  = regexp.MustCompile(`([A-Za-z0-9_]+)\s*=\s*([^,]+)`)
	titleRe   = regexp.MustCompile(`(?i)^\s*DataFusion\s+EXPLAIN\s+ANALYZE\s*-\s*(.*)\s*$`)
	versionRe = regexp.MustCompile(`DataFusion CLI v(\S+)`)
	elapsedRe = regexp.MustCompile(`(?i)Elapsed\s+([0-9]*\.?[0-9]+)\s+seconds\.`)
)
