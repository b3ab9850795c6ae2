package cli

import (
	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/display"
)

func newSystemCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "system",
		Short: "Show system hardware specifications and the suggested --gpu-memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := o.detect()
			if err != nil {
				return err
			}
			display.System(cmd.OutOrStdout(), specs, o.json)
			return nil
		},
	}
}
