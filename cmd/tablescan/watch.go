package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rheese/tablescan/internal/pipeline"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the input directory and process PDFs as they arrive",
	Long: `Watch picks up .pdf files as they land in the input directory and runs
each one through the same flow as 'tablescan run': render pages, extract
table titles, write JSON and CSV results.

A file is processed once it has settled (no writes for the debounce
interval), so partially copied PDFs are not read early. Runs until
interrupted with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, h, err := loadConfig()
		if err != nil {
			return err
		}

		logger := newLogger(cfg.Logging.Level)

		if err := h.EnsureExists(); err != nil {
			return err
		}

		p, err := pipeline.New(cfg, h, logger)
		if err != nil {
			return err
		}

		handle := func(ctx context.Context, pdfPath string) {
			set, written, err := p.ProcessFile(ctx, pdfPath)
			if err != nil {
				logger.Error("failed to process pdf", "file", filepath.Base(pdfPath), "error", err)
				return
			}
			logger.Info("results written",
				"file", filepath.Base(pdfPath),
				"records", len(set),
				"json", written.JSONPath,
				"csv", written.CSVPath,
			)
		}

		w := pipeline.NewWatcher(cfg.Pipeline.InputDir, watchDebounce, handle, logger)
		return w.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().DurationVar(
		&watchDebounce, "debounce", pipeline.DefaultDebounce, "quiet period before a changed file is processed",
	)

	rootCmd.AddCommand(watchCmd)
}
