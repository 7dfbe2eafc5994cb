package inference

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Labels is the ordered class list; Labels[i] names classifier output i.
type Labels []string

// DefaultLabels is the alphabet-and-digits set the sign models are trained on.
func DefaultLabels() Labels {
	return Labels{
		"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
		"K", "L", "M", "N", "O", "P", "Q", "R", "S", "T",
		"U", "V", "W", "X", "Y", "Z", "1", "2", "3", "4",
		"5", "6", "7", "8", "9",
	}
}

// NewLabels validates a label list: it must be non-empty and free of blank
// or duplicate entries, since results are keyed by label.
func NewLabels(names []string) (Labels, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("label set is empty")
	}
	seen := make(map[string]int, len(names))
	out := make(Labels, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("label %d is blank", i)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("label %q appears at index %d and %d", name, prev, i)
		}
		seen[name] = i
		out[i] = name
	}
	return out, nil
}

// LoadLabels reads a label file. Accepted formats are a JSON array of
// strings, a JSON object with a "classes" array (model metadata), or plain
// text with one label per line.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return ParseLabels(data)
}

// ParseLabels decodes label data in any of the formats LoadLabels accepts.
func ParseLabels(data []byte) (Labels, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, fmt.Errorf("label set is empty")
	case trimmed[0] == '[':
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return nil, fmt.Errorf("decode labels: %w", err)
		}
		return NewLabels(names)
	case trimmed[0] == '{':
		var meta struct {
			Classes []string `json:"classes"`
		}
		if err := json.Unmarshal(trimmed, &meta); err != nil {
			return nil, fmt.Errorf("decode labels: %w", err)
		}
		return NewLabels(meta.Classes)
	}

	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan labels: %w", err)
	}
	return NewLabels(names)
}

// Index returns the position of label, or -1.
func (l Labels) Index(label string) int {
	for i, name := range l {
		if name == label {
			return i
		}
	}
	return -1
}
