package cli

import (
	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/display"
)

func newEstimateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <file-size> <quantization>",
		Short: "Estimate the VRAM a model file needs and classify it against the GPU memory",
		Long: `Estimate the VRAM for a model file, e.g. llmvram estimate "4.7 GB" Q4_K_M.
Sizes are "<number> GB" or "<number> TB"; anything else gets the 0.5 GB floor.
Unknown quantizations use a multiplier of 1.0.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gpu, err := o.gpuMemoryGB()
			if err != nil {
				return err
			}
			e := display.NewEstimation(args[0], args[1], gpu, o.language())
			display.Estimate(cmd.OutOrStdout(), e, o.json)
			return nil
		},
	}
}
