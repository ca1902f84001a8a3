/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/config"
	"github.com/ssargent/esmkit/pkg/di"
	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/logging"
	"github.com/ssargent/esmkit/pkg/storage"
)

var container *di.Container

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

type settingsKey struct{}

// settings is resolved once per invocation from the config file and the
// global flags
type settings struct {
	configPath string
	config     *config.Config
	logger     *slog.Logger
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "esm",
	Short: "esm - master file chunk parser",
	Long: `esm decodes Elder Scrolls master files (.esm/.esp) into a tree of groups,
records and typed fields, indexes them and serves the index over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), settingsKey{}, s))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Directory holding the index store")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// loadSettings reads the config file when one exists and lets explicitly set
// flags override it
func loadSettings(cmd *cobra.Command) (*settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format, _ = cmd.Flags().GetString("log-format")
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return &settings{configPath: configPath, config: cfg, logger: logger}, nil
}

func settingsFrom(cmd *cobra.Command) (*settings, error) {
	s, ok := cmd.Context().Value(settingsKey{}).(*settings)
	if !ok {
		return nil, errors.New("settings not found in context")
	}
	return s, nil
}

// decodeOptions turns the parser settings into decode options
func (s *settings) decodeOptions() []esm.Option {
	return []esm.Option{
		esm.WithLogger(s.logger),
		esm.WithMaxDepth(s.config.Parser.MaxDepth),
		esm.WithMaxInflate(s.config.Parser.MaxInflateBytes),
	}
}

// openStore opens the index store under the configured data directory
func (s *settings) openStore() (*storage.IndexStore, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}
	if err := os.MkdirAll(s.config.DataDir, 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create data dir")
	}
	return container.OpenStore(s.config.DataDir)
}
