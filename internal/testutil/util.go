// Package testutil holds golden-file helpers shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

// Update rewrites golden files instead of comparing: go test ./... -update
var Update = flag.Bool(
	"update",
	false,
	"update golden files",
)

//
// --- Golden file helpers ---
//

func goldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

func writeGolden(t *testing.T, name string, b []byte) {
	t.Helper()

	if err := os.MkdirAll("testdata", 0755); err != nil {
		t.Fatalf("failed to create testdata dir: %v", err)
	}
	if err := os.WriteFile(goldenPath(name), b, 0644); err != nil {
		t.Fatalf("failed to write golden file: %v", err)
	}
}

func loadGolden(t *testing.T, name string) []byte {
	t.Helper()

	b, err := os.ReadFile(goldenPath(name))
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}
	return b
}

// CompareWithGolden marshals v as indented JSON and compares it with
// testdata/<name>.golden.
func CompareWithGolden(t *testing.T, name string, v any) {
	t.Helper()

	actual, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal actual JSON: %v", err)
	}
	CompareBytesWithGolden(t, name, actual)
}

// CompareBytesWithGolden compares raw output with testdata/<name>.golden.
func CompareBytesWithGolden(t *testing.T, name string, actual []byte) {
	t.Helper()

	if *Update {
		writeGolden(t, name, actual)
		return
	}

	expected := loadGolden(t, name)

	if !bytes.Equal(expected, actual) {
		t.Fatalf("golden mismatch for %s\nexpected:\n%s\nactual:\n%s",
			name, string(expected), string(actual))
	}
}
