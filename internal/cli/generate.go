package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/fetch"
)

func newGenerateCmd(o *options) *cobra.Command {
	var (
		dir     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Rebuild model detail files from ollama.com tag pages",
		Long: "Scrapes the tags page of every family that has a tags_url (or only the families given with --family), " +
			"turns each tag into a catalog record and writes the detail files with catalog.json to the user cache. " +
			"Nothing is written unless every family succeeds.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := o.loadDB(cmd.Context())
			if err != nil {
				return err
			}
			var families []string
			if len(o.families) > 0 {
				if families, err = db.ResolveFamilies(o.families); err != nil {
					return err
				}
			}
			if dir == "" {
				d, err := catalog.CacheDir()
				if err != nil {
					return fmt.Errorf("generate: %w", err)
				}
				dir = d
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := fetch.GenerateCatalog(ctx, db.Config(), families, dir)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			if o.json {
				encodeJSON(cmd, res)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d models for %d families in %s.\n", res.Models, res.Families, res.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Cache directory (default the user config dir)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Scrape timeout")
	return cmd
}
