package engine

import (
	"fmt"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/onnx"
	"github.com/born-ml/born/tensor"
	"github.com/rs/zerolog/log"
)

// Born runs ONNX models on the pure Go CPU backend, so it works without
// cgo or a shared library. The model format does not expose input dims,
// so the input shape is configured and the output shape comes from one
// warm-up pass on a zero input.
type Born struct {
	inputShape Shape
	backend    *cpu.Backend
}

func NewBorn(inputShape Shape) *Born {
	if len(inputShape) == 0 {
		inputShape = DefaultInputShape
	}
	return &Born{inputShape: concrete(inputShape), backend: cpu.New()}
}

func (e *Born) Name() string { return "born" }

func (e *Born) Load(model []byte) (Session, error) {
	m, err := onnx.LoadFromBytes(model, e.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to load ONNX model: %w", err)
	}

	dims := make(tensor.Shape, len(e.inputShape))
	for i, d := range e.inputShape {
		dims[i] = int(d)
	}

	s := &bornSession{model: m, dims: dims, inputShape: e.inputShape}
	out, err := s.forward(make([]float32, e.inputShape.Size()))
	if err != nil {
		return nil, fmt.Errorf("warm-up inference failed: %w", err)
	}
	s.outputShape = make(Shape, len(out.Shape()))
	for i, d := range out.Shape() {
		s.outputShape[i] = int64(d)
	}
	s.output = make([]float32, s.outputShape.Size())

	log.Debug().
		Strs("inputs", m.InputNames()).
		Stringer("input_shape", s.inputShape).
		Stringer("output_shape", s.outputShape).
		Int64("opset", m.OpsetVersion()).
		Msg("born model ready")
	return s, nil
}

func (e *Born) Close() error { return nil }

type bornSession struct {
	model       onnx.Model
	dims        tensor.Shape
	inputShape  Shape
	outputShape Shape
	output      []float32
}

func (s *bornSession) InputShape() Shape  { return s.inputShape }
func (s *bornSession) OutputShape() Shape { return s.outputShape }

func (s *bornSession) forward(input []float32) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(s.dims, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	copy(raw.AsFloat32(), input)
	return s.model.Forward(raw)
}

func (s *bornSession) Run(input []float32) ([]float32, error) {
	if len(input) != s.inputShape.Size() {
		return nil, fmt.Errorf("input has %d values, tensor holds %d", len(input), s.inputShape.Size())
	}
	out, err := s.forward(input)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	scores := out.AsFloat32()
	if len(scores) != len(s.output) {
		return nil, fmt.Errorf("output has %d values, expected %d", len(scores), len(s.output))
	}
	copy(s.output, scores)
	return s.output, nil
}

func (s *bornSession) Close() error { return nil }
