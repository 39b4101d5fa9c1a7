// Package fake provides an in-memory engine for tests.
package fake

import (
	"errors"
	"sync"

	"github.com/Brownie44l1/quickdraw-api/internal/engine"
)

var ErrLoad = errors.New("fake: load failed")

// Engine hands out Sessions whose scores come from Score. Load fails when
// the model bytes are empty.
type Engine struct {
	Input  engine.Shape
	Output engine.Shape
	// Score fills out from in. Defaults to copying Scores.
	Score  func(in, out []float32)
	Scores []float32

	mu       sync.Mutex
	Sessions []*Session
	Closed   bool
}

func (e *Engine) Name() string { return "fake" }

func (e *Engine) Load(model []byte) (engine.Session, error) {
	if len(model) == 0 {
		return nil, ErrLoad
	}
	in, out := e.Input, e.Output
	if in == nil {
		in = engine.DefaultInputShape
	}
	if out == nil {
		out = engine.Shape{1, int64(len(e.Scores))}
	}
	s := &Session{engine: e, in: in, out: out, output: make([]float32, out.Size())}

	e.mu.Lock()
	e.Sessions = append(e.Sessions, s)
	e.mu.Unlock()
	return s, nil
}

func (e *Engine) Close() error {
	e.Closed = true
	return nil
}

type Session struct {
	engine *Engine
	in     engine.Shape
	out    engine.Shape
	output []float32

	// LastInput is a copy of the most recent Run input.
	LastInput []float32
	Runs      int
	Closed    bool
}

func (s *Session) InputShape() engine.Shape  { return s.in }
func (s *Session) OutputShape() engine.Shape { return s.out }

func (s *Session) Run(input []float32) ([]float32, error) {
	if s.Closed {
		return nil, errors.New("fake: session closed")
	}
	s.Runs++
	s.LastInput = append(s.LastInput[:0], input...)
	if s.engine.Score != nil {
		s.engine.Score(input, s.output)
	} else {
		copy(s.output, s.engine.Scores)
	}
	return s.output, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}
