package cli

import (
	"fmt"

	"resumeinsight/internal/common"
	"resumeinsight/internal/document"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	common.CommandConfig
	jobFile string
	job     string
	noWait  bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <resume.pdf>",
		Short: "Analyze a résumé PDF",
		Long: `Analyze a résumé PDF and report its overall, section and ATS scores
together with strengths, weaknesses and recommendations.

When a job description is given with --job or --job-file the analysis also
reports a job match score and the keywords the résumé is missing.

Progress is printed to stderr while the service works. The formatted result is
written to stdout, or to the file given with --output.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if opts.job != "" && opts.jobFile != "" {
				return fmt.Errorf("--job and --job-file cannot be used together")
			}
			return resolveFormat(&opts.CommandConfig, cfg.App.DefaultFormat, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
	cmd.Flags().StringVar(&opts.jobFile, "job-file", "", "File containing the job description to match against")
	cmd.Flags().StringVar(&opts.job, "job", "", "Job description text to match against")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Skip waiting for the analysis service to become ready")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	logger := getLoggerFromContext(ctx)

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	if opts.OutputFile != "" {
		if err := fp.ValidateOutputFile(opts.OutputFile); err != nil {
			return err
		}
	}

	doc, err := fp.LoadDocument(path)
	if err != nil {
		return err
	}
	jobDescription, err := document.JobDescription(opts.job, opts.jobFile)
	if err != nil {
		return err
	}

	b, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	printer := common.NewProgressPrinter(cmd.ErrOrStderr())
	if !opts.noWait {
		if _, err := b.client.WaitUntilReady(ctx, printer.Waiting); err != nil {
			return fmt.Errorf("analysis service is not ready: %w", err)
		}
	}

	logger.Info("Analyzing résumé", "file", doc.Name, "pages", doc.Pages, "job_description", jobDescription != "")
	result, err := b.client.Analyze(ctx, doc.Request(jobDescription), printer.Print)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout()).HandleOutput(result, opts.CommandConfig)
}
