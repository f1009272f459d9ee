package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "crew",
		Short:         "Catering crew client: role sessions for admins, sub-admins and workers",
		Long:          "crew signs in to the catering staff scheduling API as an admin, sub-admin or user, keeps one session per role, and runs the role views (works, fares, ratings, wages) from the terminal or a local portal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newStatusCmd(app),
		newProfileCmd(app),
		newWorksCmd(app),
		newFaresCmd(app),
		newRatingsCmd(app),
		newWagesCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
