package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classloop/classloop/pkg/guard"
)

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user, if any",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.close()

			a.manager.Bootstrap(cmd.Context())

			switch a.guard.Check() {
			case guard.DecisionAllow:
				snap := a.store.Snapshot()
				fmt.Printf("%s <%s> (%s)\n", snap.User.Username, snap.User.Email, snap.User.Role)
				return nil
			default:
				return fmt.Errorf("not logged in")
			}
		},
	}
}
