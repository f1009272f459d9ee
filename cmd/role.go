package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
)

var errRoleRequired = errors.New("--role is required (admin, subadmin or user)")

func resolveRole(raw string) (domain.Role, error) {
	requested := strings.TrimSpace(raw)
	if requested == "" {
		return "", errRoleRequired
	}

	return domain.ParseRole(requested)
}

// roleScope binds a persistent --role flag to a command group and runs the
// route guard for it before any subcommand.
type roleScope struct {
	raw  string
	role domain.Role
}

func newRoleScope(cmd *cobra.Command, app *app, usage string) *roleScope {
	scope := &roleScope{}
	cmd.PersistentFlags().StringVar(&scope.raw, "role", "", usage)
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		role, err := resolveRole(scope.raw)
		if err != nil {
			return err
		}
		if err := app.guard.Require(cmd.Context(), role); err != nil {
			return withLoginHint(role, err)
		}
		scope.role = role
		return nil
	}
	return scope
}

// sessionError adds the login command to errors caused by a missing or
// revoked session.
func sessionError(role domain.Role, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAuthRequired) {
		return withLoginHint(role, err)
	}
	return err
}

func withLoginHint(role domain.Role, err error) error {
	var denied *application.AccessDeniedError
	if errors.As(err, &denied) {
		return fmt.Errorf("%w; run: crew login --role %s", err, role)
	}
	return fmt.Errorf("%w; sign in again with: crew login --role %s", err, role)
}
