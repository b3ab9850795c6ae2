package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/display"
)

func newInfoCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info <family>",
		Short: "Show a model family: description, quantizations and the VRAM of each variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, o, args[0])
		},
	}
}

func runInfo(cmd *cobra.Command, o *options, query string) error {
	db, err := o.loadDB(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fam, ok := db.Family(query)
	if !ok {
		results := db.FindFamily(query)
		switch len(results) {
		case 0:
			fmt.Fprintf(w, "\nNo model family found matching '%s'\n", query)
			return nil
		case 1:
			fam = &results[0]
		default:
			fmt.Fprintln(w, "\nMultiple model families found. Please be more specific:")
			for _, f := range results {
				fmt.Fprintf(w, "  - %s\n", f.Name)
			}
			return nil
		}
	}

	sub := *o
	sub.families = []string{fam.Name}
	res, err := sub.buildTable(db)
	if err != nil {
		return err
	}
	options := catalog.QuantOptions(db.Details(fam.Name), res.lang)
	description := catalog.Describe(db, []string{fam.Name}, res.quant, res.lang)
	display.Info(w, fam, description, res.rows, options, res.lang, o.json)
	return nil
}
