package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chunkforge/chunkforge/pkg/config"
	"github.com/chunkforge/chunkforge/server"
)

// ServeCmd runs the HTTP API until interrupted.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chunking API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			rulesPath, _ := cmd.Flags().GetString("rules")

			splitter, cleanup, err := buildSplitter(cfg, rulesPath)
			if err != nil {
				return err
			}
			defer cleanup()

			srv, err := server.New(&cfg.Server, splitter)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("rules", "", "rule table overriding the configured one")
	return cmd
}
