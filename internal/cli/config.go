package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/display"
	"github.com/shayne-snap/llmvram/internal/settings"
)

func newConfigCmd(o *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the stored settings (GPU memory, theme, language)",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings file location and values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			display.Settings(cmd.OutOrStdout(), o.env.settingsPath, o.env.settings, o.json)
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting (" + strings.Join(settings.Keys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.env.settingsPath == "" {
				return errors.New("no settings location; pass --config")
			}
			// Start from the file, not the environment overrides applied at startup.
			s, err := settings.Load(o.env.settingsPath)
			if err != nil {
				return err
			}
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := settings.Save(o.env.settingsPath, s); err != nil {
				return fmt.Errorf("could not write settings: %w", err)
			}
			o.env.settings = s
			display.Settings(cmd.OutOrStdout(), o.env.settingsPath, s, o.json)
			return nil
		},
	})
	return configCmd
}
