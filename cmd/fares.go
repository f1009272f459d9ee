package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
)

func newFaresCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fares",
		Short: "Manage the fare table (admin)",
	}
	scope := newRoleScope(cmd, app, "Role to act as (fares are admin only)")

	cmd.AddCommand(
		newFaresListCmd(app, scope),
		newFaresCreateCmd(app, scope),
		newFaresUpdateCmd(app, scope),
		newFaresDeleteCmd(app, scope),
	)

	return cmd
}

func newFaresListCmd(app *app, scope *roleScope) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fares, err := app.catering.ListFares(cmd.Context(), scope.role)
			if err != nil {
				return sessionError(scope.role, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), fares)
			}
			return writeFaresTable(cmd.OutOrStdout(), fares)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newFaresCreateCmd(app *app, scope *roleScope) *cobra.Command {
	var fare domain.Fare

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a fare",
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := app.catering.CreateFare(cmd.Context(), scope.role, fare)
			if err != nil {
				return sessionError(scope.role, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created fare %s: %s %.2f\n", created.ID, created.Name, created.Amount)
			return err
		},
	}

	cmd.Flags().StringVar(&fare.Name, "name", "", "Fare name")
	cmd.Flags().Float64Var(&fare.Amount, "amount", 0, "Amount")
	cmd.Flags().StringVar(&fare.Unit, "unit", "", "Unit (e.g. shift, hour)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newFaresUpdateCmd(app *app, scope *roleScope) *cobra.Command {
	var (
		name   string
		amount float64
		unit   string
	)

	cmd := &cobra.Command{
		Use:   "update <fare-id>",
		Short: "Change a fare",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update domain.FareUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("amount") {
				update.Amount = &amount
			}
			if cmd.Flags().Changed("unit") {
				update.Unit = &unit
			}
			if update.Name == nil && update.Amount == nil && update.Unit == nil {
				return errors.New("nothing to update: set --name, --amount or --unit")
			}

			updated, err := app.catering.UpdateFare(cmd.Context(), scope.role, application.UpdateFareCommand{FareID: args[0], Update: update})
			if err != nil {
				return sessionError(scope.role, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated fare %s\n", updated.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().Float64Var(&amount, "amount", 0, "New amount")
	cmd.Flags().StringVar(&unit, "unit", "", "New unit")

	return cmd
}

func newFaresDeleteCmd(app *app, scope *roleScope) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <fare-id>",
		Short: "Remove a fare",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.catering.DeleteFare(cmd.Context(), scope.role, args[0]); err != nil {
				return sessionError(scope.role, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted fare %s\n", args[0])
			return err
		},
	}
}

func writeFaresTable(w io.Writer, fares []domain.Fare) error {
	if len(fares) == 0 {
		_, err := fmt.Fprintln(w, "no fares")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tAMOUNT\tUNIT")
	for _, fare := range fares {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", fare.ID, fare.Name, fare.Amount, fare.Unit)
	}
	return tw.Flush()
}
