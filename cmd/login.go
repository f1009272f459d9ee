package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	statusadapter "github.com/bnema/crew/internal/adapters/render/status"
	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
)

func newLoginCmd(app *app) *cobra.Command {
	var (
		roleRaw    string
		identifier string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as admin, sub-admin or user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := resolveRole(roleRaw)
			if err != nil {
				return err
			}

			secret := password
			if secret == "" {
				secret, err = promptSecret(cmd, fmt.Sprintf("%s password: ", role.Label()))
				if err != nil {
					return err
				}
			}

			return runLogin(cmd, app, application.LoginCommand{Role: role, Identifier: identifier, Secret: secret})
		},
	}

	cmd.Flags().StringVar(&roleRaw, "role", "", "Role to sign in as (admin, subadmin, user)")
	cmd.Flags().StringVar(&identifier, "identifier", "", "Phone number or email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("identifier")

	return cmd
}

func runLogin(cmd *cobra.Command, app *app, login application.LoginCommand) error {
	var outcome domain.Outcome
	request := func(ctx context.Context) ([]application.SessionStatus, error) {
		var err error
		outcome, err = app.sessions.Login(ctx, login)
		if err != nil || !outcome.OK() {
			return nil, err
		}
		status, err := app.sessions.Status(ctx, login.Role)
		if err != nil {
			return nil, err
		}
		return []application.SessionStatus{status}, nil
	}

	label := fmt.Sprintf("Signing in as %s...", login.Role.Label())
	rendered, err := statusadapter.Track(cmd.Context(), cmd.ErrOrStderr(), label, statusadapter.RenderOptions{
		Now:            app.now(),
		ExpiringWithin: expiringWithin,
	}, request)
	if err != nil {
		if errors.Is(err, domain.ErrLoginInFlight) {
			return fmt.Errorf("sign in as %s: %w", login.Role.Label(), err)
		}
		return err
	}
	if !outcome.OK() {
		return fmt.Errorf("sign in as %s: %w", login.Role.Label(), outcome.Err())
	}

	session, err := app.sessions.Get(login.Role)
	if err != nil {
		return err
	}
	name := session.State().Principal.DisplayName()
	if name == "" {
		name = login.Identifier
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n%s\n", name, login.Role.Label(), rendered)
	return err
}

// promptSecret reads a secret without echo from a terminal, or one line
// from piped input.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
