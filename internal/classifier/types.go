package classifier

import "errors"

var (
	// ErrNotReady is returned by a classifier that failed to load or was closed.
	ErrNotReady = errors.New("classifier not ready")
	// ErrInvalidInput covers nil images, wrong dimensions and wrong tensor lengths.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLabelMismatch means the label count differs from the model output length.
	ErrLabelMismatch = errors.New("model/label mismatch")
	ErrNoLabels      = errors.New("no labels loaded")
)

// Result is the winning class of a single inference.
type Result struct {
	Label string
	Index int
}
