package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rheese/tablescan/internal/config"
	"github.com/rheese/tablescan/internal/format"
	"github.com/rheese/tablescan/internal/pipeline"
)

var (
	runInputDir  string
	runOutputDir string
	runDPI       int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every PDF in the input directory once",
	Long: `Run renders each page of every PDF in the input directory, asks the
model for table titles, and writes one JSON and one CSV result file per PDF.

A PDF that cannot be processed is reported and skipped; the batch keeps
going. The run summary is printed to stdout in the --output format.

Examples:
  tablescan run                            # Use configured directories
  tablescan run --input ./pdfs --dpi 300   # Override for this invocation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, h, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cfg, cmd)

		logger := newLogger(cfg.Logging.Level)

		if err := h.EnsureExists(); err != nil {
			return err
		}

		p, err := pipeline.New(cfg, h, logger)
		if err != nil {
			return err
		}

		summary, runErr := p.Run(cmd.Context())

		if summary != nil {
			for key, usage := range p.Metrics().ByModel() {
				logger.Debug("model usage",
					"model", key,
					"calls", usage.Calls,
					"failed", usage.Failed,
					"total_tokens", usage.TotalTokens,
				)
			}
			if err := format.Output(summary); err != nil {
				return err
			}
		}
		if runErr != nil {
			return runErr
		}

		if summary.Files > 0 && summary.Succeeded == 0 {
			return fmt.Errorf("all %d pdf files failed", summary.Files)
		}
		return nil
	},
}

// applyRunFlags lets run flags override the loaded configuration.
func applyRunFlags(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("input") {
		cfg.Pipeline.InputDir = runInputDir
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Pipeline.OutputDir = runOutputDir
	}
	if cmd.Flags().Changed("dpi") {
		cfg.Rasterize.DPI = runDPI
	}
}

func init() {
	runCmd.Flags().StringVar(&runInputDir, "input", "", "directory of PDFs to process (overrides config)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for result files (overrides config)")
	runCmd.Flags().IntVar(&runDPI, "dpi", 0, "render resolution in DPI (overrides config)")

	rootCmd.AddCommand(runCmd)
}
