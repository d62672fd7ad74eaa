package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katje/colorizer/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the merged configuration after all sources are applied.

Precedence, lowest to highest: /etc/katje/config.toml, ~/.katje/katje.toml,
~/.katje/settings.toml, the nearest project katje.toml, then KATJE_*
environment variables. Sensitive values are omitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println(cfg.String())
		fmt.Printf("Settings file: %s\n", config.SettingsPath())
		return nil
	},
}
