// Package testutil provides shared test helpers for the dedupe project.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SetupDedupeDir creates a temp project directory with .dedupe/data.txt
// holding lines, one per line. It returns the project directory.
func SetupDedupeDir(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	dedupeDir := filepath.Join(dir, ".dedupe")
	if err := os.MkdirAll(dedupeDir, 0755); err != nil {
		t.Fatalf("failed to create .dedupe dir: %v", err)
	}

	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(filepath.Join(dedupeDir, "data.txt"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to create data.txt: %v", err)
	}
	return dir
}

// WriteConfig writes .dedupe/config.yaml in the project directory.
func WriteConfig(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, ".dedupe", "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}
}

// ReadStore returns the lines of .dedupe/<name> (data.txt when name is empty).
func ReadStore(t *testing.T, dir, name string) []string {
	t.Helper()
	if name == "" {
		name = "data.txt"
	}
	data, err := os.ReadFile(filepath.Join(dir, ".dedupe", name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
