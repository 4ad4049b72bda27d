package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/classloop/classloop/pkg/pref"
)

var validThemes = map[string]bool{"light": true, "dark": true}

func themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or set the UI theme preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := pref.Open(filepath.Join(configDir(), "prefs.json"))
			if err != nil {
				return err
			}
			theme := pref.Bind(store, "theme", "light")

			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), theme.Get())
				return nil
			}
			if !validThemes[args[0]] {
				return fmt.Errorf("unknown theme %q", args[0])
			}
			if err := theme.Set(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "theme set to %s\n", args[0])
			return nil
		},
	}
}
