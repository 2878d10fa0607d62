package cli

import (
	"fmt"

	"resumeinsight/internal/common"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var cmdConfig common.CommandConfig

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the analysis service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := getLoggerFromContext(ctx)
			if err := resolveFormat(&cmdConfig, cfg.App.DefaultFormat, cfg); err != nil {
				return err
			}

			b, err := newBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			status, err := b.client.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout()).HandleOutput(status, cmdConfig)
		},
	}

	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	return cmd
}
