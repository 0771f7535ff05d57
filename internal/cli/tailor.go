package cli

import (
	"fmt"

	"resumetex/internal/common"
	"resumetex/internal/types"
	"resumetex/internal/utils"

	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [resume.tex] [job-description.txt]",
	Short: "Tailor a LaTeX resume for a specific job description",
	Long: `Rewrite a LaTeX resume so it targets a job description.

The first argument is the base resume (.tex). The job description is read
from the second argument, or scraped from --job-url instead. The tailored
document is written as raw LaTeX (--format tex) or as JSON with the model
that produced it (--format json).`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if tailorConfig.OutputFormat == "" {
			tailorConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if !utils.IsLaTeXSource(args[0]) {
			return fmt.Errorf("%s is not a LaTeX source (.tex or .ltx)", args[0])
		}
		if (len(args) == 2) == (tailorJobURL != "") {
			return fmt.Errorf("pass either a job description file or --job-url")
		}
		return common.ValidateOutputFormat(tailorConfig.OutputFormat, common.SupportedFormats)
	},
	RunE: runTailor,
}

var (
	tailorConfig common.CommandConfig
	tailorJobURL string
	tailorModel  string
)

func init() {
	tailorCmd.Flags().StringVarP(&tailorConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	tailorCmd.Flags().StringVar(&tailorConfig.OutputFormat, "format", "", "Output format: tex or json")
	tailorCmd.Flags().StringVar(&tailorJobURL, "job-url", "", "Scrape the job description from this URL")
	tailorCmd.Flags().StringVarP(&tailorModel, "model", "m", "", "Try this Gemini model before the configured ones")

	_ = tailorCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runTailor(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	templates, err := newTemplateStore(cfg, logger)
	if err != nil {
		return err
	}
	tailorer, _ := newTailorer(cfg, templates, logger)

	var scraped string
	if tailorJobURL != "" {
		job, err := newFetcher(cfg, logger).Fetch(cmd.Context(), tailorJobURL)
		if err != nil {
			return fmt.Errorf("failed to fetch job description: %w", err)
		}
		logger.Info("Fetched job description", "url", job.URL, "title", job.Title, "chars", len(job.Text))
		scraped = job.Text
	}

	createInput := func(contents []string) (types.TailorRequest, error) {
		req := types.TailorRequest{BaseResume: contents[0], Model: tailorModel}
		if len(contents) == 2 {
			req.JobDescription = contents[1]
		} else {
			req.JobDescription = scraped
		}
		return req, nil
	}

	logDetails := func(input types.TailorRequest, cfg common.CommandConfig) {
		logger.Info("Starting resume tailoring",
			"resume_chars", len(input.BaseResume),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		tailorConfig,
		args,
		createInput,
		tailorer.Tailor,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}

	logger.Info("Resume tailoring completed successfully")
	return nil
}
