package main

import (
	"github.com/spf13/cobra"

	"github.com/rheese/tablescan/internal/format"
	"github.com/rheese/tablescan/version"
)

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return format.Output(versionInfo{
			Version: version.GitRelease,
			Commit:  version.GitCommit,
			Date:    version.GitCommitDate,
			Go:      version.GoInfo,
		})
	},
}
