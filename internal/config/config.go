// Package config holds runtime options for the server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/quickdraw-api/internal/engine"
	"github.com/Brownie44l1/quickdraw-api/internal/sketch"
)

// Config holds runtime wiring options.
type Config struct {
	ModelPath   string // serialized model, e.g. models/model.onnx
	LabelsPath  string // class names, one per line, or metadata JSON
	Backend     string // onnx, tflite or born
	LibraryPath string // onnxruntime shared library; empty uses the loader default
	Threads     int    // tflite interpreter threads; 0 means all CPUs
	Port        string
	Filter      string // resampling used when scaling uploads
	LogLevel    string
	Pretty      bool // human readable console logs
}

func Default() Config {
	return Config{
		ModelPath:  "models/model.onnx",
		LabelsPath: "models/class_names.txt",
		Backend:    "onnx",
		Port:       "8080",
		Filter:     string(sketch.Nearest),
		LogLevel:   "info",
	}
}

// FromEnv overlays environment variables on Default.
func FromEnv() Config {
	cfg := Default()
	cfg.ApplyEnv(os.LookupEnv)
	return cfg
}

func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Port, "PORT")
	set(&c.ModelPath, "QUICKDRAW_MODEL")
	set(&c.LabelsPath, "QUICKDRAW_LABELS")
	set(&c.Backend, "QUICKDRAW_BACKEND")
	set(&c.LibraryPath, "ONNXRUNTIME_LIB")
	set(&c.LogLevel, "LOG_LEVEL")
	if v, ok := lookup("QUICKDRAW_THREADS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Threads = n
		}
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model path is required"))
	}
	if c.LabelsPath == "" {
		errs = append(errs, errors.New("labels path is required"))
	}
	if _, ok := engine.Canonical(c.Backend); !ok {
		errs = append(errs, fmt.Errorf("%w: %q", engine.ErrUnknownBackend, c.Backend))
	}
	if _, err := sketch.ParseFilter(c.Filter); err != nil {
		errs = append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.Threads < 0 {
		errs = append(errs, errors.New("threads must not be negative"))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	return errors.Join(errs...)
}

// EngineOptions maps the config onto backend options.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{LibraryPath: c.LibraryPath, Threads: c.Threads}
}
