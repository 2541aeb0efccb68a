// Package parser dispatches raw plan artifacts to the engine-specific
// grammars and normalizes their output into one operator-tree shape.
package parser

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/planbench/planbench/internal/model"
	"github.com/planbench/planbench/internal/parser/datafusion"
	"github.com/planbench/planbench/internal/parser/duckdb"
	"github.com/planbench/planbench/internal/parser/snowflake"
)

// Engine identifies which benchmarked engine produced a plan artifact.
type Engine string

const (
	EngineUnknown    Engine = ""
	EngineDataFusion Engine = "datafusion"
	EngineDuckDB     Engine = "duckdb"
	EngineSnowflake  Engine = "snowflake"
)

// Engines lists the supported engine identifiers.
func Engines() []Engine {
	return []Engine{EngineDataFusion, EngineDuckDB, EngineSnowflake}
}

// ParseEngine validates a user-supplied engine name.
func ParseEngine(name string) (Engine, error) {
	switch Engine(name) {
	case EngineDataFusion, EngineDuckDB, EngineSnowflake:
		return Engine(name), nil
	default:
		return EngineUnknown, fmt.Errorf("unknown engine %q (expected datafusion, duckdb or snowflake)", name)
	}
}

var planTableRe = regexp.MustCompile(`(?i)\|\s*plan_type\s*\|\s*plan\s*\|`)

// Detect sniffs the artifact format. The pipe-table header is DataFusion;
// a document carrying Operations or operator stats is the warehouse; a
// JSON tree with operator/children structure is DuckDB.
func Detect(data []byte) Engine {
	if planTableRe.Match(data) {
		return EngineDataFusion
	}
	if bytes.Contains(data, []byte(`"Operations"`)) ||
		bytes.Contains(data, []byte(`"OPERATOR_TYPE"`)) ||
		bytes.Contains(data, []byte(`"plan_json"`)) {
		return EngineSnowflake
	}
	if bytes.Contains(data, []byte(`"operator_type"`)) ||
		bytes.Contains(data, []byte(`"operator_timing"`)) ||
		bytes.Contains(data, []byte(`"children"`)) {
		return EngineDuckDB
	}
	return EngineUnknown
}

// Parse runs the engine-specific grammar over the artifact. Missing plan
// structure yields a plan with empty Roots and a nil error; only artifacts
// that cannot be decoded at all produce an error, and callers treat even
// that as local to the one query.
func Parse(engine Engine, data []byte) (*model.Plan, error) {
	switch engine {
	case EngineDataFusion:
		return datafusion.Parse(string(data)), nil
	case EngineDuckDB:
		return duckdb.Parse(bytes.NewReader(data))
	case EngineSnowflake:
		return snowflake.Parse(data)
	case EngineUnknown:
		if detected := Detect(data); detected != EngineUnknown {
			return Parse(detected, data)
		}
		return nil, fmt.Errorf("parser: could not detect plan format")
	default:
		return nil, fmt.Errorf("parser: unsupported engine %q", engine)
	}
}
