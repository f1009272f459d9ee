package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bnema/crew/internal/domain"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the signed-in profile of a role",
	}
	scope := newRoleScope(cmd, app, "Role whose profile to use (admin, subadmin, user)")

	cmd.AddCommand(
		newProfileShowCmd(app, scope),
		newProfileRefreshCmd(app, scope),
		newProfileUpdateCmd(app, scope),
	)

	return cmd
}

func newProfileShowCmd(app *app, scope *roleScope) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cached profile without contacting the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.sessions.Get(scope.role)
			if err != nil {
				return err
			}
			return writePrincipal(cmd.OutOrStdout(), session.State().Principal, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newProfileRefreshCmd(app *app, scope *roleScope) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the profile from the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.sessions.Get(scope.role)
			if err != nil {
				return err
			}
			if err := session.RefreshProfile(cmd.Context()).Err(); err != nil {
				return sessionError(scope.role, err)
			}
			return writePrincipal(cmd.OutOrStdout(), session.State().Principal, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newProfileUpdateCmd(app *app, scope *roleScope) *cobra.Command {
	var name, phone, email string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change name, phone or email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var update domain.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("phone") {
				update.Phone = &phone
			}
			if cmd.Flags().Changed("email") {
				update.Email = &email
			}
			if update.Empty() {
				return errors.New("nothing to update: set --name, --phone or --email")
			}

			session, err := app.sessions.Get(scope.role)
			if err != nil {
				return err
			}
			if err := session.UpdateProfile(cmd.Context(), update).Err(); err != nil {
				return sessionError(scope.role, err)
			}
			return writePrincipal(cmd.OutOrStdout(), session.State().Principal, false)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&phone, "phone", "", "New phone number")
	cmd.Flags().StringVar(&email, "email", "", "New email")

	return cmd
}

func writePrincipal(w io.Writer, principal *domain.Principal, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(principal)
	}
	if principal == nil {
		_, err := fmt.Fprintln(w, "profile not loaded; run profile refresh")
		return err
	}

	_, err := fmt.Fprintf(w, "ID:\t%s\nName:\t%s\nRole:\t%s\n", principal.ID, principal.DisplayName(), principal.Role.Label())
	if err != nil {
		return err
	}
	if principal.Phone != "" {
		if _, err := fmt.Fprintf(w, "Phone:\t%s\n", principal.Phone); err != nil {
			return err
		}
	}
	if principal.Email != "" {
		if _, err := fmt.Fprintf(w, "Email:\t%s\n", principal.Email); err != nil {
			return err
		}
	}
	return nil
}
