package engine

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNX runs models through the onnxruntime shared library.
type ONNX struct {
	libraryPath string

	mu     sync.Mutex
	inited bool
}

func NewONNX(libraryPath string) *ONNX {
	return &ONNX{libraryPath: libraryPath}
}

func (e *ONNX) Name() string { return "onnx" }

func (e *ONNX) init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inited || ort.IsInitialized() {
		return nil
	}
	if e.libraryPath != "" {
		ort.SetSharedLibraryPath(e.libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	e.inited = true
	return nil
}

func (e *ONNX) Load(model []byte) (Session, error) {
	if err := e.init(); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs/outputs: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, model has %d and %d", len(inputs), len(outputs))
	}

	inputShape := concrete(Shape(inputs[0].Dimensions))
	outputShape := concrete(Shape(outputs[0].Dimensions))

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(inputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(model,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.Debug().
		Str("input", inputs[0].Name).Stringer("input_shape", inputShape).
		Str("output", outputs[0].Name).Stringer("output_shape", outputShape).
		Msg("onnx session ready")

	return &onnxSession{
		session:      session,
		inputShape:   inputShape,
		outputShape:  outputShape,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (e *ONNX) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.inited {
		return nil
	}
	e.inited = false
	return ort.DestroyEnvironment()
}

type onnxSession struct {
	session      *ort.AdvancedSession
	inputShape   Shape
	outputShape  Shape
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func (s *onnxSession) InputShape() Shape  { return s.inputShape }
func (s *onnxSession) OutputShape() Shape { return s.outputShape }

func (s *onnxSession) Run(input []float32) ([]float32, error) {
	data := s.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input has %d values, tensor holds %d", len(input), len(data))
	}
	copy(data, input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return s.outputTensor.GetData(), nil
}

func (s *onnxSession) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.session != nil {
		keep(s.session.Destroy())
		s.session = nil
	}
	if s.inputTensor != nil {
		keep(s.inputTensor.Destroy())
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		keep(s.outputTensor.Destroy())
		s.outputTensor = nil
	}
	return firstErr
}
