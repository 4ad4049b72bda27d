package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classloop/classloop/pkg/auth"
)

func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.close()

			err = a.manager.Login(cmd.Context(), auth.Credentials{
				Email:    email,
				Password: password,
			})
			if err != nil {
				snap := a.store.Snapshot()
				if snap.LastError != "" {
					return fmt.Errorf("login rejected: %s", snap.LastError)
				}
				return err
			}

			snap := a.store.Snapshot()
			fmt.Printf("Logged in as %s <%s> (%s)\n", snap.User.Username, snap.User.Email, snap.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
