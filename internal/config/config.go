package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Config holds tunable thresholds for plan reporting and diff summaries.
type Config struct {
	Report ReportConfig `json:"report"`
	Diff   DiffConfig   `json:"diff"`
}

// ReportConfig defines thresholds for hot-operator selection.
type ReportConfig struct {
	// HotOperatorShare is a fraction of wall clock in [0,1], not a
	// percentage.
	HotOperatorShare    float64 `json:"hot_operator_share"`
	HotOperatorLimit    int     `json:"hot_operator_limit"`
	SyncWarningPercent  float64 `json:"sync_warning_percent"`
	SyncCriticalPercent float64 `json:"sync_critical_percent"`
}

// DiffConfig defines thresholds for plan diff summaries.
type DiffConfig struct {
	MinSelfDeltaSeconds float64 `json:"min_self_delta_seconds"`
	MinPercentChange    float64 `json:"min_percent_change"`
	MaxItems            int     `json:"max_items"`
}

var (
	mu     sync.RWMutex
	active = Default()
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Report: ReportConfig{
			HotOperatorShare:    0.10,
			HotOperatorLimit:    5,
			SyncWarningPercent:  20.0,
			SyncCriticalPercent: 40.0,
		},
		Diff: DiffConfig{
			MinSelfDeltaSeconds: 0.010,
			MinPercentChange:    5.0,
			MaxItems:            8,
		},
	}
}

// Active returns the currently applied configuration.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Use replaces the active configuration.
func Use(cfg Config) {
	mu.Lock()
	active = cfg
	mu.Unlock()
}

// Apply loads configuration from the provided path (JSON). Empty path resets to default.
func Apply(path string) error {
	if path == "" {
		Use(Default())
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	Use(cfg)
	return nil
}
