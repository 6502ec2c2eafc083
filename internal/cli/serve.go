package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Mansoor88-6/process-tracker/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the backend: authentication, process definitions, online records,
offline sync ingestion and the admin API. Settings come from the "server"
section of the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer log.Sync()

			log.Info("Starting process-tracker server", zap.String("env", cfg.Env))

			srv, err := server.New(cfg.Server, log.Logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Run(ctx); err != nil {
				return err
			}
			log.Info("Server stopped")
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
