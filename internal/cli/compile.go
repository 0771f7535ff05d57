package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"resumetex/internal/common"
	"resumetex/internal/latex"
	"resumetex/internal/types"
	"resumetex/internal/utils"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a LaTeX source or archive to PDF",
	Long: `Compile a .tex file, or a .tar/.tar.bz2 archive containing main.tex, to PDF
through the configured compilation service.

Without --engine the engine is inferred from the source and the others are
tried in turn. Missing packages are fetched from the CTAN mirror once.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var (
	compileOutput string
	compileEngine string
)

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "Output PDF path (default: input name with .pdf, '-' for stdout)")
	compileCmd.Flags().StringVarP(&compileEngine, "engine", "e", "", "Engine: pdflatex, xelatex or lualatex (default: inferred)")

	_ = compileCmd.RegisterFlagCompletionFunc("engine", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(types.EnginePlain), string(types.EngineUnicode), string(types.EngineScript)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	input := args[0]

	data, err := common.NewFileProcessor(logger).ReadBytes(input)
	if err != nil {
		return err
	}

	kind, err := latex.ClassifyUpload(input, data, cfg.LaTeX.MaxUploadSize)
	if err != nil {
		return err
	}

	req := types.CompileRequest{Engine: types.Engine(compileEngine)}
	if kind == latex.UploadArchive {
		req.Archive = data
		req.ArchiveName = input
	} else {
		req.LaTeX = string(data)
	}

	output := compileOutput
	if output == "" {
		output = utils.ReplaceExtension(input, ".pdf")
	}
	if output == "-" {
		output = ""
	}

	logger.Info("Starting compilation",
		"file", input,
		"size", utils.FormatFileSize(int64(len(data))),
		"archive", kind == latex.UploadArchive,
		"engine", compileEngine)

	compiler, _ := newCompiler(cfg, logger)
	start := time.Now()
	result, err := compiler.Compile(cmd.Context(), req)
	if err != nil {
		var failure *latex.CompileFailure
		if stderrors.As(err, &failure) && failure.Log != "" {
			fmt.Fprintf(os.Stderr, "Compilation log (last status %d):\n%s\n", failure.Status, failure.Log)
		}
		return fmt.Errorf("failed to compile %s: %w", input, err)
	}

	if err := common.NewOutputHandler(logger).HandleBinary(result.PDF, common.CommandConfig{OutputFile: output, OutputFormat: "pdf"}); err != nil {
		return err
	}

	logger.Info("Compilation completed successfully",
		"engine", result.Engine,
		"pdf_size", utils.FormatFileSize(int64(len(result.PDF))),
		"failed_attempts", len(result.Attempts),
		"elapsed", time.Since(start).String())
	return nil
}
