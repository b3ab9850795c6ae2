package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/fetch"
)

func newUpdateListCmd(o *options) *cobra.Command {
	var (
		baseURL string
		dir     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "update-list",
		Short: "Download the latest model catalog and save it to the user cache",
		Long:  "Fetches catalog.json and every family's detail file from the project URL and writes them to the user cache, where they override the built-in catalog. Does not require reinstall.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				d, err := catalog.CacheDir()
				if err != nil {
					return fmt.Errorf("update-list: %w", err)
				}
				dir = d
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := fetch.UpdateCatalog(ctx, baseURL, dir)
			if err != nil {
				return fmt.Errorf("update-list: %w", err)
			}
			if o.json {
				encodeJSON(cmd, res)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated model catalog (%d families, %d models) in %s.\n", res.Families, res.Models, res.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", fetch.DefaultBaseURL, "Catalog base URL (catalog.json and the models directory live under it)")
	cmd.Flags().StringVar(&dir, "dir", "", "Cache directory (default the user config dir)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Download timeout")
	return cmd
}
