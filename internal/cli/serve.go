package cli

import (
	"fmt"

	"resumeinsight/internal/config"
	"resumeinsight/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port string
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway in front of the analysis service",
		Long: `Start an HTTP gateway that forwards browser and script requests to the
analysis service using the configured backend API key.

Available endpoints:
- GET  /health: Gateway liveness
- GET  /api/health: Analysis service readiness
- POST /api/analyze: Analyze an uploaded résumé (SSE with Accept: text/event-stream)
- POST /api/chat: Follow-up question about an analysis
- GET  /stats: Rate limiting, circuit breaker and key rotation stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := getLoggerFromContext(ctx)

			b, err := newBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			serverCfg := server.ConfigFromApp(cfg, Version)
			if cmd.Flags().Changed("port") {
				serverCfg.Port = port
			}
			if cmd.Flags().Changed("host") {
				serverCfg.Host = host
			}

			srv := server.NewServer(b.client, serverCfg, b.observability, logger)

			if keyRotationEnabled(cfg) {
				vaultClient, err := config.NewVaultClient(cfg.Vault, logger)
				if err != nil {
					return fmt.Errorf("failed to initialize vault client: %w", err)
				}
				srv.KeyWatcher = server.NewKeyWatcher(vaultClient, cfg.Vault.Secrets.GatewayKeys,
					cfg.Vault.PollInterval, srv.SetAPIKeys, logger)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from config)")
	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (default from config)")

	return cmd
}

// keyRotationEnabled reports whether gateway keys should be re-read from Vault
func keyRotationEnabled(cfg *config.Config) bool {
	return cfg.Vault.Enabled && cfg.Vault.Secrets.GatewayKeys != "" && cfg.Vault.PollInterval > 0
}
