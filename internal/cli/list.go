package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/display"
)

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List the model families in the catalog (optionally matching a query)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := o.loadDB(cmd.Context())
			if err != nil {
				return err
			}
			families := db.Families()
			if len(args) == 1 {
				families = db.FindFamily(args[0])
				if len(families) == 0 && !o.json {
					fmt.Fprintf(cmd.OutOrStdout(), "\nNo model family found matching '%s'\n", args[0])
					return nil
				}
			}
			display.Families(cmd.OutOrStdout(), db, families, o.language(), o.json)
			return nil
		},
	}
}
