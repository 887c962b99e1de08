package main

import (
	"fmt"
	"os"

	"github.com/kishore28kumar/pulss/engine/infra/server"
	"github.com/kishore28kumar/pulss/pkg/config"
	"github.com/kishore28kumar/pulss/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pulss",
		Short: "Pulss API gateway",
	}
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "Include source locations in logs")
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server with the request-gating pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
			if err != nil {
				return err
			}
			logger.SetupLogger(logLevel, logJSON, logSource)
			log := logger.GetDefault()

			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			ctx := logger.ContextWithLogger(cmd.Context(), log)
			ctx = config.ContextWithConfig(ctx, cfg)

			srv, err := server.NewServer(ctx, cfg, log)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file to load before reading configuration")
	return cmd
}
