package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/trichat"
	"github.com/hupe1980/trichat/logging"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := logging.NewSlogLogger(cfg.LogLevel(), cfg.Log.Format, false).
				WithComponent("trichat").
				WithContext("service", cfg.Server.ServiceName)

			relay, err := trichat.New(cfg, func(o *trichat.Options) {
				o.Logger = logger
			})
			if err != nil {
				return err
			}

			// not fatal: chat requests answer 500 until the key is set
			for _, p := range relay.Registry().Providers() {
				if cfg.Credential(p) == "" {
					logger.Warn("Upstream credential not set", "provider", p, "env", cfg.CredentialEnv(p))
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return relay.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
