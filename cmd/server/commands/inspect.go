package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/quickdraw-api/internal/engine"
	"github.com/Brownie44l1/quickdraw-api/internal/labels"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show model shapes and check them against the labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(cfg.Backend, cfg.EngineOptions())
			if err != nil {
				return err
			}
			defer eng.Close()
			return inspect(eng, cfg.ModelPath, cfg.LabelsPath, cmd.OutOrStdout())
		},
	}
	return cmd
}

// inspect prints the model shapes and fails when the labels, or the
// metadata document they came from, disagree with the model.
func inspect(eng engine.Engine, modelPath, labelsPath string, out io.Writer) error {
	model, err := os.ReadFile(modelPath)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}
	session, err := eng.Load(model)
	if err != nil {
		return err
	}
	defer session.Close()

	names, err := labels.Load(labelsPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "backend: %s\n", eng.Name())
	fmt.Fprintf(out, "input:   %v\n", session.InputShape())
	fmt.Fprintf(out, "output:  %v\n", session.OutputShape())
	fmt.Fprintf(out, "labels:  %d\n", len(names))
	if n := session.OutputShape().Size(); n != len(names) {
		return fmt.Errorf("model outputs %d scores but %d labels are listed", n, len(names))
	}

	if !labels.IsMetadata(labelsPath) {
		return nil
	}
	meta, err := labels.LoadMetadata(labelsPath)
	if err != nil {
		return err
	}
	if err := meta.Check(session.InputShape(), session.OutputShape()); err != nil {
		return err
	}
	fmt.Fprintf(out, "metadata: image size %d, shapes match\n", meta.ImageSize)
	return nil
}
