package cli

import (
	"fmt"

	"resumeinsight/internal/common"
	"resumeinsight/internal/document"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		outputDir string
		format    string
		jobFile   string
		existing  bool
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Analyze résumés dropped into an inbox directory",
		Long: `Watch a directory for new or updated résumé PDFs and analyze each one.
The formatted result is written next to the source file, or into --output-dir,
with an extension matching the output format.

Files are analyzed one at a time in the order they arrive. Press Ctrl+C to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := getLoggerFromContext(ctx)

			watchCfg := cfg.Watch
			if len(args) == 1 {
				watchCfg.Dir = args[0]
			}
			if cmd.Flags().Changed("output-dir") {
				watchCfg.OutputDir = outputDir
			}
			if cmd.Flags().Changed("job-file") {
				watchCfg.JobFile = jobFile
			}
			if cmd.Flags().Changed("existing") {
				watchCfg.ProcessExisting = existing
			}
			if watchCfg.Dir == "" {
				return fmt.Errorf("no directory to watch (pass one or set watch.dir)")
			}

			watchCfg.Format = common.ResolveFormat(format, watchCfg.Format)
			if err := common.ValidateOutputFormat(watchCfg.Format, cfg.App.SupportedFormats); err != nil {
				return err
			}

			jobDescription, err := document.JobDescription("", watchCfg.JobFile)
			if err != nil {
				return err
			}

			b, err := newBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			out := cmd.ErrOrStderr()
			w, err := watch.NewWatcher(b.client, watch.Options{
				Dir:             watchCfg.Dir,
				OutputDir:       watchCfg.OutputDir,
				Format:          watchCfg.Format,
				JobDescription:  jobDescription,
				DebounceDelay:   watchCfg.DebounceDelay,
				ProcessExisting: watchCfg.ProcessExisting,
				MaxFileSize:     cfg.App.MaxFileSize,
				Logger:          logger,
				Metrics:         b.observability.GetMetrics(),
				OnResult: func(outcome watch.Outcome) {
					if outcome.Err != nil {
						_, _ = fmt.Fprintf(out, "FAILED %s: %s\n", outcome.Source, errors.UserMessage(outcome.Err))
						return
					}
					_, _ = fmt.Fprintf(out, "OK     %s -> %s\n", outcome.Source, outcome.Output)
				},
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "Watching %s for résumé PDFs (Ctrl+C to stop)\n", watchCfg.Dir)
			if err := w.Run(ctx); err != nil {
				return err
			}

			stats := w.Stats()
			_, _ = fmt.Fprintf(out, "Stopped: %d analyzed, %d failed\n", stats.Processed, stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for results (default: the watched directory)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json, yaml, text, or markdown")
	cmd.Flags().StringVar(&jobFile, "job-file", "", "Job description applied to every résumé")
	cmd.Flags().BoolVar(&existing, "existing", false, "Also analyze PDFs already in the directory")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}
