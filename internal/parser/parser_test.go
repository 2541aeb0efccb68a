package parser

import (
	"os"
	"testing"

	"github.com/planbench/planbench/test"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name   string
		sample string
		want   Engine
	}{
		{"pipe table", "datafusion_q1.txt", EngineDataFusion},
		{"profile json", "duckdb_profile.json", EngineDuckDB},
		{"framed capture", "snowflake_capture.txt", EngineSnowflake},
	}
	for _, tc := range cases {
		data, err := os.ReadFile(test.SamplePath(t, tc.sample))
		if err != nil {
			t.Fatalf("%s: read sample: %v", tc.name, err)
		}
		if got := Detect(data); got != tc.want {
			t.Fatalf("%s: Detect = %q, want %q", tc.name, got, tc.want)
		}
	}

	if got := Detect([]byte("plain text")); got != EngineUnknown {
		t.Fatalf("Detect on noise = %q, want unknown", got)
	}
}

func TestParseEngineNames(t *testing.T) {
	for _, engine := range Engines() {
		got, err := ParseEngine(string(engine))
		if err != nil || got != engine {
			t.Fatalf("ParseEngine(%q) = %v, %v", engine, got, err)
		}
	}
	if _, err := ParseEngine("oracle"); err == nil {
		t.Fatalf("expected error for unsupported engine name")
	}
}

func TestParseAutoDetect(t *testing.T) {
	data, err := os.ReadFile(test.SamplePath(t, "duckdb_profile.json"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	plan, err := Parse(EngineUnknown, data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.Empty() {
		t.Fatalf("expected a parsed plan via auto-detection")
	}
}

func TestParseUndetectable(t *testing.T) {
	if _, err := Parse(EngineUnknown, []byte("garbage")); err == nil {
		t.Fatalf("expected detection failure")
	}
}
