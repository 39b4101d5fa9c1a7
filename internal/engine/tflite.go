//go:build tflite

package engine

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/mattn/go-tflite"
	"github.com/rs/zerolog/log"
)

// TFLite runs .tflite flatbuffers through the TensorFlow Lite C API.
type TFLite struct {
	threads int
}

func NewTFLite(threads int) *TFLite {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &TFLite{threads: threads}
}

func (e *TFLite) Name() string { return "tflite" }

func (e *TFLite) Load(model []byte) (Session, error) {
	m := tflite.NewModel(model)
	if m == nil {
		return nil, errors.New("failed to parse tflite model")
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(e.threads)
	options.SetErrorReporter(func(msg string, _ interface{}) {
		log.Warn().Str("backend", "tflite").Msg(msg)
	}, nil)
	defer options.Delete()

	interpreter := tflite.NewInterpreter(m, options)
	if interpreter == nil {
		m.Delete()
		return nil, errors.New("failed to create tflite interpreter")
	}

	s := &tfliteSession{model: m, interpreter: interpreter}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		s.Close()
		return nil, fmt.Errorf("failed to allocate tensors: status %v", status)
	}
	if interpreter.GetInputTensorCount() != 1 || interpreter.GetOutputTensorCount() != 1 {
		s.Close()
		return nil, fmt.Errorf("expected 1 input and 1 output, model has %d and %d",
			interpreter.GetInputTensorCount(), interpreter.GetOutputTensorCount())
	}

	s.input = interpreter.GetInputTensor(0)
	s.output = interpreter.GetOutputTensor(0)
	if s.input.Type() != tflite.Float32 || s.output.Type() != tflite.Float32 {
		s.Close()
		return nil, fmt.Errorf("expected float32 tensors, got %v and %v", s.input.Type(), s.output.Type())
	}
	s.inputShape = tensorShape(s.input)
	s.outputShape = tensorShape(s.output)

	log.Debug().
		Stringer("input_shape", s.inputShape).
		Stringer("output_shape", s.outputShape).
		Int("threads", e.threads).
		Msg("tflite interpreter ready")
	return s, nil
}

func (e *TFLite) Close() error { return nil }

func tensorShape(t *tflite.Tensor) Shape {
	shape := make(Shape, t.NumDims())
	for i := range shape {
		shape[i] = int64(t.Dim(i))
	}
	return shape
}

type tfliteSession struct {
	model       *tflite.Model
	interpreter *tflite.Interpreter
	input       *tflite.Tensor
	output      *tflite.Tensor
	inputShape  Shape
	outputShape Shape
}

func (s *tfliteSession) InputShape() Shape  { return s.inputShape }
func (s *tfliteSession) OutputShape() Shape { return s.outputShape }

func (s *tfliteSession) Run(input []float32) ([]float32, error) {
	data := s.input.Float32s()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input has %d values, tensor holds %d", len(input), len(data))
	}
	copy(data, input)

	if status := s.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("inference failed: status %v", status)
	}
	return s.output.Float32s(), nil
}

func (s *tfliteSession) Close() error {
	if s.interpreter != nil {
		s.interpreter.Delete()
		s.interpreter = nil
	}
	if s.model != nil {
		s.model.Delete()
		s.model = nil
	}
	return nil
}
