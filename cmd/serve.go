package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/trustgraph/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API",
	Long:  `Serves the trust graph, CV, skill extraction, and verification endpoints until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		handler, err := a.router()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return server.New(cfg.Server.Addr, handler, log).Run(ctx, cfg.Server.ShutdownTimeout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
