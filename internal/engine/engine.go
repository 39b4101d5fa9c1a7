// Package engine abstracts the inference runtime behind a two-call
// contract: Load turns model bytes into a Session, and Session.Run turns an
// input buffer into a score vector.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownBackend = errors.New("unknown inference backend")

// Shape is a tensor shape. Negative dimensions are dynamic.
type Shape []int64

// Size returns the number of elements, treating dynamic dimensions as 1.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		if d > 0 {
			n *= int(d)
		}
	}
	return n
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d < 0 {
			parts[i] = "?"
			continue
		}
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, "x") + "]"
}

// Session is a loaded model ready to run. The slice returned by Run belongs
// to the session and is overwritten by the next call.
type Session interface {
	InputShape() Shape
	OutputShape() Shape
	Run(input []float32) ([]float32, error)
	Close() error
}

type Engine interface {
	Name() string
	Load(model []byte) (Session, error)
	Close() error
}

// Options configures backend construction. Zero values pick defaults.
type Options struct {
	LibraryPath string // onnxruntime shared library
	Threads     int    // tflite interpreter threads
	InputShape  Shape  // born needs it up front; defaults to 1x28x28x1
}

var DefaultInputShape = Shape{1, 28, 28, 1}

// Backends lists the names accepted by New.
func Backends() []string {
	return []string{"onnx", "tflite", "born"}
}

// Canonical maps a backend name to the form listed by Backends. Case is
// ignored and "onnxruntime" is an alias for "onnx".
func Canonical(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "onnxruntime" {
		name = "onnx"
	}
	return name, slices.Contains(Backends(), name)
}

func New(name string, opts Options) (Engine, error) {
	canon, ok := Canonical(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	switch canon {
	case "tflite":
		return NewTFLite(opts.Threads), nil
	case "born":
		return NewBorn(opts.InputShape), nil
	default:
		return NewONNX(opts.LibraryPath), nil
	}
}

// concrete replaces dynamic dimensions so buffers can be allocated: the
// leading axis becomes the batch of one, any other dynamic axis takes the
// matching entry of DefaultInputShape when ranks line up and 1 otherwise.
func concrete(s Shape) Shape {
	out := make(Shape, len(s))
	for i, d := range s {
		switch {
		case d > 0:
			out[i] = d
		case i == 0:
			out[i] = 1
		case len(s) == len(DefaultInputShape):
			out[i] = DefaultInputShape[i]
		default:
			out[i] = 1
		}
	}
	return out
}
