package cli

import (
	"github.com/spf13/cobra"
)

func newTableCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the VRAM table: estimated VRAM and single-GPU run status per model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(cmd, o)
		},
	}
}
