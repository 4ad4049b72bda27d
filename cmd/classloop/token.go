package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show or refresh the anti-forgery token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.close()

			tokens := a.client.Tokens()
			if refresh {
				if token, ok := tokens.ForceRefresh(cmd.Context()); ok {
					fmt.Println(token)
					return nil
				}
				return fmt.Errorf("token refresh failed")
			}

			tokens.EnsureLoaded(cmd.Context())
			token, ok := tokens.Token()
			if !ok {
				return fmt.Errorf("no token available")
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "force a fresh token even if one is cached")
	return cmd
}
