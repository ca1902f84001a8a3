/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with a generated API key",
	Long: `Create the configuration file with a freshly generated API key and
make sure the data directory exists. An existing config is left alone
unless --force is given.

Examples:
  esm init
  esm init --config ./esm.yaml --data-dir ./data --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		if config.ConfigExists(s.configPath) && !force {
			cmd.Printf("Config already exists at %s. Use --force to regenerate it.\n", s.configPath)
			return nil
		}

		cfg, err := config.BootstrapConfig(s.configPath, s.config.DataDir)
		if err != nil {
			return err
		}
		s.config = cfg

		store, err := s.openStore()
		if err != nil {
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}

		cmd.Printf("Configuration created at %s\n", s.configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		if printKey {
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		}
		cmd.Printf("\nYou can now start the server with:\n  esm serve --config %s\n", s.configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}
