package test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

var (
	rootPath string
	once     sync.Once
)

// RootPath resolves a path relative to the repository rootPath (where go.mod resides).
func RootPath(t *testing.T) string {
	t.Helper()
	once.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getwd: %v", err)
		}
		for {
			if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
				rootPath = wd
				break
			}
			next := filepath.Dir(wd)
			if next == wd {
				t.Fatalf("go.mod not found from %s", wd)
			}
			wd = next
		}
	})
	return rootPath
}

// SamplePath resolves a file under the repository's samples directory.
func SamplePath(t *testing.T, rel string) string {
	t.Helper()
	return filepath.Join(RootPath(t), "samples", rel)
}

// ReadSample loads a plan artifact from the samples directory.
func ReadSample(t *testing.T, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(SamplePath(t, rel))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	return data
}
