package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/crew/internal/adapters/render/status"
	"github.com/bnema/crew/internal/application"
)

const expiringWithin = 15 * time.Minute

type statusJSON struct {
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	Authenticated bool       `json:"authenticated"`
	Name          string     `json:"name,omitempty"`
	PrincipalID   string     `json:"principal_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LoginPath     string     `json:"login_path"`
	LastError     string     `json:"last_error,omitempty"`
}

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session of every role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeStatusesOutput(cmd, app, app.sessions.Statuses(cmd.Context()), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func writeStatusesOutput(cmd *cobra.Command, app *app, statuses []application.SessionStatus, asJSON bool) error {
	if asJSON {
		out := make([]statusJSON, 0, len(statuses))
		for _, status := range statuses {
			out = append(out, toStatusJSON(status))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	rendered, err := app.statusRenderer(statuses, statusadapter.RenderOptions{
		Now:            app.now(),
		ExpiringWithin: expiringWithin,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func toStatusJSON(status application.SessionStatus) statusJSON {
	out := statusJSON{
		Role:          string(status.Role),
		Status:        string(status.State.Status),
		Authenticated: status.State.IsAuthenticated,
		LoginPath:     status.LoginPath,
		LastError:     status.State.LastError,
	}
	if principal := status.State.Principal; principal != nil {
		out.Name = principal.DisplayName()
		out.PrincipalID = principal.ID
	}
	if !status.ExpiresAt.IsZero() {
		expiresAt := status.ExpiresAt.UTC()
		out.ExpiresAt = &expiresAt
	}
	return out
}
