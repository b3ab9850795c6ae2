package cli

import (
	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/display"
)

func newQuantsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quants",
		Short: "List the quantizations available for the selected families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := o.loadDB(cmd.Context())
			if err != nil {
				return err
			}
			families, err := db.ResolveFamilies(o.families)
			if err != nil {
				return err
			}
			lang := o.language()
			display.Quants(cmd.OutOrStdout(), catalog.QuantOptions(db.Details(families...), lang), lang, o.json)
			return nil
		},
	}
}
