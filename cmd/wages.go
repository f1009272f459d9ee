package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newWagesCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "wages",
		Short: "Show wages as computed by the server",
	}
	scope := newRoleScope(cmd, app, "Role to act as (admin, user)")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		summary, err := app.catering.Wages(cmd.Context(), scope.role)
		if err != nil {
			return sessionError(scope.role, err)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), summary)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "WORK\tWORKER\tTITLE\tAMOUNT")
		for _, entry := range summary.Entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", entry.WorkID, entry.WorkerID, entry.Title, entry.Amount)
		}
		_, _ = fmt.Fprintf(tw, "\t\tTOTAL\t%.2f\n", summary.Total)
		return tw.Flush()
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}
