// Package classifier turns a small grayscale drawing into a single label by
// running it through a fixed-shape classification model.
package classifier

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/quickdraw-api/internal/engine"
	"github.com/Brownie44l1/quickdraw-api/internal/labels"
)

// Classifier owns one inference session plus the reusable input buffer. A
// nil or closed Classifier reports ErrNotReady.
type Classifier struct {
	mu      sync.Mutex
	session engine.Session
	labels  []string
	input   []float32
	width   int
	height  int
}

// Open reads the model and label files and builds a Classifier.
func Open(eng engine.Engine, modelPath, labelsPath string) (*Classifier, error) {
	model, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	names, err := labels.Load(labelsPath)
	if err != nil {
		return nil, err
	}

	return New(eng, model, names)
}

// New loads model into eng and validates it against names.
func New(eng engine.Engine, model []byte, names []string) (*Classifier, error) {
	if len(names) == 0 {
		return nil, ErrNoLabels
	}

	session, err := eng.Load(model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	width, height, err := imageDims(session.InputShape())
	if err != nil {
		session.Close()
		return nil, err
	}

	if n := session.OutputShape().Size(); n != len(names) {
		session.Close()
		return nil, fmt.Errorf("%w: model outputs %d scores, %d labels loaded", ErrLabelMismatch, n, len(names))
	}

	log.Info().
		Str("backend", eng.Name()).
		Int("width", width).Int("height", height).
		Int("classes", len(names)).
		Msg("classifier loaded")

	return &Classifier{
		session: session,
		labels:  append([]string(nil), names...),
		input:   make([]float32, width*height),
		width:   width,
		height:  height,
	}, nil
}

// imageDims extracts width and height from a single-channel image shape.
func imageDims(s engine.Shape) (width, height int, err error) {
	switch {
	case len(s) == 4 && s[0] == 1 && s[3] == 1: // NHWC
		height, width = int(s[1]), int(s[2])
	case len(s) == 4 && s[0] == 1 && s[1] == 1: // NCHW
		height, width = int(s[2]), int(s[3])
	case len(s) == 3 && s[0] == 1:
		height, width = int(s[1]), int(s[2])
	case len(s) == 2:
		height, width = int(s[0]), int(s[1])
	default:
		return 0, 0, fmt.Errorf("unsupported model input shape %v", s)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("unsupported model input shape %v", s)
	}
	return width, height, nil
}

// Ready returns ErrNotReady unless the classifier can run inference.
func (c *Classifier) Ready() error {
	if c == nil {
		return ErrNotReady
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotReady
	}
	return nil
}

// InputSize is the image size Classify expects.
func (c *Classifier) InputSize() (width, height int) {
	if c == nil {
		return 0, 0
	}
	return c.width, c.height
}

// Labels returns a copy of the label set.
func (c *Classifier) Labels() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.labels...)
}

// Classify returns the best-scoring label for img, which must already be
// scaled to InputSize. The empty string is returned when no score is a
// number.
func (c *Classifier) Classify(img image.Image) (string, error) {
	if c == nil {
		return "", ErrNotReady
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return "", ErrNotReady
	}
	if err := Preprocess(img, c.width, c.height, c.input); err != nil {
		return "", err
	}

	res, err := c.run()
	if err != nil {
		return "", err
	}
	return res.Label, nil
}

// Predict runs an already normalized tensor of width*height values.
func (c *Classifier) Predict(input []float32) (Result, error) {
	if c == nil {
		return Result{Index: -1}, ErrNotReady
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Result{Index: -1}, ErrNotReady
	}
	if len(input) != len(c.input) {
		return Result{Index: -1}, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidInput, len(c.input), len(input))
	}
	copy(c.input, input)
	return c.run()
}

func (c *Classifier) run() (Result, error) {
	scores, err := c.session.Run(c.input)
	if err != nil {
		return Result{Index: -1}, err
	}
	if len(scores) != len(c.labels) {
		return Result{Index: -1}, fmt.Errorf("%w: got %d scores for %d labels", ErrLabelMismatch, len(scores), len(c.labels))
	}

	idx := ArgMax(scores)
	if idx < 0 {
		return Result{Index: -1}, nil
	}
	return Result{Label: c.labels[idx], Index: idx}, nil
}

// ArgMax returns the index of the highest score, -1 if there is none. On
// ties the last equal score wins; NaN never wins.
func ArgMax(scores []float32) int {
	best := -1
	var top float32
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			continue
		}
		if best < 0 || v >= top {
			best, top = i, v
		}
	}
	return best
}

// Close releases the session. Later calls report ErrNotReady.
func (c *Classifier) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
