// Package labels loads the ordered class names that map model output
// positions to human-readable labels.
package labels

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrShapeMismatch is returned when metadata disagrees with a loaded model.
var ErrShapeMismatch = errors.New("metadata does not match model")

// Metadata is the JSON model description some exporters write next to the
// model. Only Classes is required; the shapes and image size are checked
// against the model when present.
type Metadata struct {
	InputShape  []int64  `json:"input_shape,omitempty"`
	OutputShape []int64  `json:"output_shape,omitempty"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size,omitempty"`
}

// Read returns one label per line. Blank lines are kept because they still
// occupy an output index.
func Read(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return out, nil
}

// ReadMetadata parses a metadata document.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	var meta Metadata
	if err := json.NewDecoder(r).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &meta, nil
}

// IsMetadata reports whether Load treats path as a metadata document.
func IsMetadata(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func LoadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()
	return ReadMetadata(f)
}

// Load reads labels from path; .json files are treated as metadata.
func Load(path string) ([]string, error) {
	if IsMetadata(path) {
		meta, err := LoadMetadata(path)
		if err != nil {
			return nil, err
		}
		return meta.Classes, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Check compares the metadata with the shapes a model reports. Negative
// dimensions on either side are dynamic and match anything.
func (m *Metadata) Check(input, output []int64) error {
	var errs []error
	if len(m.InputShape) > 0 && !sameShape(m.InputShape, input) {
		errs = append(errs, fmt.Errorf("%w: input shape %v, model has %v", ErrShapeMismatch, m.InputShape, input))
	}
	if len(m.OutputShape) > 0 && !sameShape(m.OutputShape, output) {
		errs = append(errs, fmt.Errorf("%w: output shape %v, model has %v", ErrShapeMismatch, m.OutputShape, output))
	}
	if len(m.OutputShape) > 0 && size(m.OutputShape) != len(m.Classes) {
		errs = append(errs, fmt.Errorf("%w: output shape %v holds %d scores for %d classes",
			ErrShapeMismatch, m.OutputShape, size(m.OutputShape), len(m.Classes)))
	}
	if m.ImageSize > 0 {
		// height and width
		n := 0
		for _, d := range input {
			if d < 0 || d == int64(m.ImageSize) {
				n++
			}
		}
		if n < 2 {
			errs = append(errs, fmt.Errorf("%w: image size %d, model input is %v", ErrShapeMismatch, m.ImageSize, input))
		}
	}
	return errors.Join(errs...)
}

func sameShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] >= 0 && b[i] >= 0 && a[i] != b[i] {
			return false
		}
	}
	return true
}

func size(s []int64) int {
	n := 1
	for _, d := range s {
		if d > 0 {
			n *= int(d)
		}
	}
	return n
}
