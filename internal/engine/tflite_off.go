//go:build !tflite

package engine

import "errors"

// ErrTFLiteUnavailable is returned when the binary was built without the
// tflite tag, which needs the TensorFlow Lite C library at build time.
var ErrTFLiteUnavailable = errors.New("tflite backend not compiled in (build with -tags tflite)")

type TFLite struct {
	threads int
}

func NewTFLite(threads int) *TFLite {
	return &TFLite{threads: threads}
}

func (e *TFLite) Name() string { return "tflite" }

func (e *TFLite) Load([]byte) (Session, error) {
	return nil, ErrTFLiteUnavailable
}

func (e *TFLite) Close() error { return nil }
