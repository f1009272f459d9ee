package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

func newWorksCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "works",
		Short: "List, publish, assign and apply for catering works",
	}
	scope := newRoleScope(cmd, app, "Role to act as (admin, subadmin, user)")

	cmd.AddCommand(
		newWorksListCmd(app, scope),
		newWorksCreateCmd(app, scope),
		newWorksAssignCmd(app, scope),
		newWorksApplyCmd(app, scope),
	)

	return cmd
}

func newWorksListCmd(app *app, scope *roleScope) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List works visible to the role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			works, err := app.catering.ListWorks(cmd.Context(), scope.role)
			if err != nil {
				return sessionError(scope.role, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), works)
			}
			return writeWorksTable(cmd.OutOrStdout(), works)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newWorksCreateCmd(app *app, scope *roleScope) *cobra.Command {
	var (
		work     domain.Work
		startsAt string
		endsAt   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new work",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if work.StartsAt, err = parseTimeFlag("starts-at", startsAt); err != nil {
				return err
			}
			if work.EndsAt, err = parseTimeFlag("ends-at", endsAt); err != nil {
				return err
			}

			created, err := app.catering.CreateWork(cmd.Context(), scope.role, work)
			if err != nil {
				return sessionError(scope.role, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created work %s: %s\n", created.ID, created.Title)
			return err
		},
	}

	cmd.Flags().StringVar(&work.Title, "title", "", "Work title")
	cmd.Flags().StringVar(&work.Venue, "venue", "", "Venue")
	cmd.Flags().StringVar(&startsAt, "starts-at", "", "Start time (RFC 3339)")
	cmd.Flags().StringVar(&endsAt, "ends-at", "", "End time (RFC 3339)")
	cmd.Flags().IntVar(&work.RequiredStaff, "staff", 1, "Number of staff required")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("starts-at")
	_ = cmd.MarkFlagRequired("ends-at")

	return cmd
}

func newWorksAssignCmd(app *app, scope *roleScope) *cobra.Command {
	var workers []string

	cmd := &cobra.Command{
		Use:   "assign <work-id>",
		Short: "Assign workers to a work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.catering.AssignWork(cmd.Context(), application.AssignWorkCommand{
				Role:      scope.role,
				WorkID:    args[0],
				WorkerIDs: workers,
			})
			if err != nil {
				return sessionError(scope.role, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to work %s\n", strings.Join(workers, ", "), args[0])
			return err
		},
	}

	cmd.Flags().StringSliceVar(&workers, "worker", nil, "Worker ID (repeatable)")
	_ = cmd.MarkFlagRequired("worker")

	return cmd
}

func newWorksApplyCmd(app *app, scope *roleScope) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <work-id>",
		Short: "Apply for a work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.catering.ApplyForWork(cmd.Context(), scope.role, args[0]); err != nil {
				return sessionError(scope.role, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Applied for work %s\n", args[0])
			return err
		},
	}
}

func writeWorksTable(w io.Writer, works []domain.Work) error {
	if len(works) == 0 {
		_, err := fmt.Fprintln(w, "no works")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tVENUE\tSTARTS\tSTAFF\tSTATUS")
	for _, work := range works {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			work.ID, work.Title, work.Venue, formatTime(work.StartsAt),
			len(work.AssignedStaff), work.RequiredStaff, work.Status)
	}
	return tw.Flush()
}

func parseTimeFlag(name string, raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be RFC 3339 (e.g. 2026-05-01T18:00:00Z): %w", name, err)
	}
	return parsed, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
