// Package commands implements the quickdraw command line.
package commands

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/quickdraw-api/internal/classifier"
	"github.com/Brownie44l1/quickdraw-api/internal/config"
	"github.com/Brownie44l1/quickdraw-api/internal/engine"
)

var cfg = config.FromEnv()

func Execute() error {
	root := &cobra.Command{
		Use:           "quickdraw",
		Short:         "Sketch recognition over a pretrained 28x28 classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			setupLogging()
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&cfg.ModelPath, "model", "m", cfg.ModelPath, "serialized model file")
	f.StringVarP(&cfg.LabelsPath, "labels", "l", cfg.LabelsPath, "class names, one per line, or metadata JSON")
	f.StringVarP(&cfg.Backend, "backend", "b", cfg.Backend, "inference backend: onnx, tflite or born")
	f.StringVar(&cfg.LibraryPath, "onnxruntime-lib", cfg.LibraryPath, "path to the onnxruntime shared library")
	f.IntVar(&cfg.Threads, "threads", cfg.Threads, "tflite interpreter threads (0 = all CPUs)")
	f.StringVar(&cfg.Filter, "filter", cfg.Filter, "resampling filter: nearest, bilinear, bicubic or lanczos3")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	f.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "human readable logs")

	root.AddCommand(serveCmd(), classifyCmd(), labelsCmd(), inspectCmd())

	err := root.Execute()
	if err != nil {
		log.Error().Err(err).Msg("quickdraw failed")
	}
	return err
}

func setupLogging() {
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openClassifier builds the configured engine and loads the model into it.
// The engine is returned even on error so the caller can close it.
func openClassifier() (engine.Engine, *classifier.Classifier, error) {
	eng, err := engine.New(cfg.Backend, cfg.EngineOptions())
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("model", cfg.ModelPath).Str("labels", cfg.LabelsPath).Str("backend", eng.Name()).Msg("loading model")

	c, err := classifier.Open(eng, cfg.ModelPath, cfg.LabelsPath)
	return eng, c, err
}
