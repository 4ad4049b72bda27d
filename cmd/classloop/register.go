package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classloop/classloop/pkg/auth"
)

func registerCmd() *cobra.Command {
	var username, email, password, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.close()

			accessToken, err := a.manager.Register(cmd.Context(), auth.Registration{
				Username: username,
				Email:    email,
				Password: password,
				Role:     role,
			})
			if err != nil {
				snap := a.store.Snapshot()
				if snap.LastError != "" {
					return fmt.Errorf("registration rejected: %s", snap.LastError)
				}
				return err
			}

			snap := a.store.Snapshot()
			fmt.Printf("Registered %s <%s> (%s)\n", snap.User.Username, snap.User.Email, snap.User.Role)
			if accessToken != "" {
				logger.Debug("server issued access token", "token", accessToken)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVarP(&role, "role", "r", "STUDENT", "account role (STUDENT or TEACHER)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
