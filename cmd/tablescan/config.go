package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rheese/tablescan/internal/config"
	"github.com/rheese/tablescan/internal/format"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tablescan configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, h, err := loadConfig()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		path := h.ConfigPath()
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		// Copy before masking so the loaded config stays untouched.
		shown := *cfg
		shown.Provider.APIKey = maskKey(cfg.Provider.APIKey)

		return format.Output(shown)
	},
}

// maskKey hides literal credentials. ${ENV_VAR} references are already
// indirection and stay readable.
func maskKey(key string) string {
	if key == "" || strings.HasPrefix(key, "${") {
		return key
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(configCmd)
}
