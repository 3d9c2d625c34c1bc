package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rollup-metrics/rollup/internal/config"
	"github.com/rollup-metrics/rollup/internal/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// The API token never leaves the config file.
		if cfg.Jira.APIToken != "" {
			cfg.Jira.APIToken = "(set)"
		}

		if jsonOutput {
			outputJSON(cfg)
			return nil
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load already applies defaults and validates every field entry.
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("OK: %d field(s) configured\n", len(cfg.Fields))
		if cfg.Jira.URL == "" {
			fmt.Println("note: jira.url is not set; compute and watch will fail")
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		cfg := config.Default()
		cfg.MirrorProperty = "rollup-metric"
		cfg.Fields["progress"] = types.FieldConfig{
			FormulaType: types.FormulaPercentComplete,
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s — set jira.url, jira.username, and jira.api_token to connect.\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
