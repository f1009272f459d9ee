package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(app *app) *cobra.Command {
	var (
		roleRaw string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out of one role or all roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				app.sessions.LogoutAll(cmd.Context())
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out of all roles")
				return err
			}
			if roleRaw == "" {
				return errors.New("--role or --all is required")
			}

			role, err := resolveRole(roleRaw)
			if err != nil {
				return err
			}
			session, err := app.sessions.Get(role)
			if err != nil {
				return err
			}
			session.Logout(cmd.Context())

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s\n", role.Label())
			return err
		},
	}

	cmd.Flags().StringVar(&roleRaw, "role", "", "Role to sign out of (admin, subadmin, user)")
	cmd.Flags().BoolVar(&all, "all", false, "Sign out of every role")
	cmd.MarkFlagsMutuallyExclusive("role", "all")

	return cmd
}
