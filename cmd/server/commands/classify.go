package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/quickdraw-api/internal/classifier"
	"github.com/Brownie44l1/quickdraw-api/internal/sketch"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify FILE...",
		Short: "Print the best matching label for each image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, c, err := openClassifier()
			if eng != nil {
				defer eng.Close()
			}
			if err != nil {
				return err
			}
			defer c.Close()

			filter, _ := sketch.ParseFilter(cfg.Filter)
			for _, path := range args {
				label, err := classifyFile(c, path, filter)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, label)
			}
			return nil
		},
	}
	return cmd
}

func classifyFile(c *classifier.Classifier, path string, filter sketch.Filter) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := sketch.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	w, h := c.InputSize()
	return c.Classify(sketch.Prepare(img, w, h, filter))
}
