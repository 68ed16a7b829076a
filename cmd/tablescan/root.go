package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rheese/tablescan/internal/config"
	"github.com/rheese/tablescan/internal/format"
	"github.com/rheese/tablescan/internal/home"
	"github.com/rheese/tablescan/version"
)

var (
	cfgFile      string
	homeDirFlag  string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "tablescan",
	Short: "Extract table titles from PDFs with a multimodal model",
	Long: `Tablescan renders every page of a PDF to an image, shows each page to a
multimodal model, and collects the table titles the model finds into one
JSON and one CSV result file per PDF.

The pipeline includes:
  - PDF page rasterization via poppler
  - Gemini and OpenAI vision backends
  - Response normalization that never drops a page
  - Batch and watch modes over an input directory`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.tablescan/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDirFlag, "home", "", "tablescan home directory (default: ~/.tablescan)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		format.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the home directory and loads configuration for a command.
func loadConfig() (*config.Config, *home.Dir, error) {
	h, err := home.New(homeDirFlag)
	if err != nil {
		return nil, nil, err
	}

	cm, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, nil, err
	}

	return cm.Get(), h, nil
}

// newLogger builds the command logger. --verbose wins over the configured level.
func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}

	// Logs go to stderr so stdout stays parseable command output.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
}
