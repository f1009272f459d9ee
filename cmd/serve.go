package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/crew/internal/adapters/portal"
	"github.com/bnema/crew/internal/domain"
)

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the role views on a local portal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = app.cfg.PortalListen
			}

			server, err := portal.Start(listen, portal.Deps{
				Sessions: app.sessions,
				Guard:    app.guard,
				Catering: app.catering,
				Metrics:  app.metrics,
				Logger:   app.logger,
			})
			if err != nil {
				return fmt.Errorf("start portal: %w", err)
			}
			defer func() { _ = server.Close() }()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Portal listening on %s\n", server.URL())
			for _, role := range domain.Roles {
				_, _ = fmt.Fprintf(out, "  %-9s %s%s\n", role.Label(), server.URL(), role.LoginPath())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case <-ctx.Done():
				return nil
			case err, ok := <-server.Done():
				if ok && err != nil {
					return fmt.Errorf("portal stopped: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from portal.listen)")

	return cmd
}
