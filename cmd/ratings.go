package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/crew/internal/domain"
)

func newRatingsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "Rate workers after a work",
	}
	scope := newRoleScope(cmd, app, "Role to act as (admin, subadmin)")

	cmd.AddCommand(newRatingsSubmitCmd(app, scope))

	return cmd
}

func newRatingsSubmitCmd(app *app, scope *roleScope) *cobra.Command {
	var rating domain.Rating

	cmd := &cobra.Command{
		Use:   "submit <work-id>",
		Short: "Submit a rating for a worker on a work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating.WorkID = args[0]
			if err := app.catering.SubmitRating(cmd.Context(), scope.role, rating); err != nil {
				return sessionError(scope.role, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Rated worker %s %d/5 on work %s\n", rating.WorkerID, rating.Score, rating.WorkID)
			return err
		},
	}

	cmd.Flags().StringVar(&rating.WorkerID, "worker", "", "Worker ID")
	cmd.Flags().IntVar(&rating.Score, "score", 0, "Score from 1 to 5")
	cmd.Flags().StringVar(&rating.Comment, "comment", "", "Optional comment")
	_ = cmd.MarkFlagRequired("worker")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}
