package cli

import (
	"fmt"

	"resumetex/internal/common"
	"resumetex/internal/errors"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the Gemini models available for tailoring",
	Long: `List the text generation models the configured Gemini API key can use.
Embedding and legacy gecko models are left out.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return common.ValidateOutputFormat(modelsConfig.OutputFormat, []string{"text", "json"})
	},
	RunE: runModels,
}

var modelsConfig common.CommandConfig

func init() {
	modelsCmd.Flags().StringVar(&modelsConfig.OutputFormat, "format", "text", "Output format: text or json")
	modelsCmd.Flags().StringVarP(&modelsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if cfg.AI.APIKey == "" {
		return errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"no Gemini API key configured; set GEMINI_API_KEY or RESUMETEX_AI_APIKEY", nil)
	}

	gemini, _ := newGenerators(cfg, logger)
	models, err := gemini.ListModels(cmd.Context(), cfg.AI.APIKey)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	return common.NewOutputHandler(logger).HandleOutput(models, modelsConfig)
}
