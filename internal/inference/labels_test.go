package inference

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLabels_Formats(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Labels
	}{
		{"json array", `["A", "B", "C"]`, Labels{"A", "B", "C"}},
		{"metadata object", `{"input_shape": [1, 64, 64, 3], "classes": ["1", "2"]}`, Labels{"1", "2"}},
		{"text lines", "A\nB\n\n# digits\n1\n", Labels{"A", "B", "1"}},
		{"text with whitespace", "  X  \r\n Y\r\n", Labels{"X", "Y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabels([]byte(tt.data))
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %q at %d, got %q", tt.want[i], i, got[i])
				}
			}
		})
	}
}

func TestParseLabels_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "   "},
		{"empty array", "[]"},
		{"duplicate", `["A", "B", "A"]`},
		{"blank entry", `["A", " "]`},
		{"broken json", `["A", `},
		{"object without classes", `{"labels": ["A"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLabels([]byte(tt.data)); err == nil {
				t.Error("Expected error, got none")
			}
		})
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	if err := os.WriteFile(path, []byte(`["A","B"]`), 0o644); err != nil {
		t.Fatalf("Failed to write labels: %v", err)
	}
	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if labels.Index("B") != 1 || labels.Index("Z") != -1 {
		t.Errorf("Unexpected index results for %v", labels)
	}

	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDefaultLabels(t *testing.T) {
	labels := DefaultLabels()
	if len(labels) != 35 {
		t.Errorf("Expected 35 labels, got %d", len(labels))
	}
	if _, err := NewLabels(labels); err != nil {
		t.Errorf("Expected default labels to be valid, got %v", err)
	}
}
