package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/quickdraw-api/internal/labels"
)

func labelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List class labels with their output index",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := labels.Load(cfg.LabelsPath)
			if err != nil {
				return err
			}
			for i, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, name)
			}
			return nil
		},
	}
	return cmd
}
