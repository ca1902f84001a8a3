/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/api"
	"github.com/ssargent/esmkit/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the REST API server. Master files uploaded to /api/v1/files are
decoded, indexed and saved; indexed records can then be looked up by form id,
editor id or record type. Every /api/v1 route requires the X-API-Key header.

Run 'esm init' first to create a config file with a generated API key.

Examples:
  esm serve
  esm serve --port 9000 --bind 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		cfg := s.config

		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Security.APIKey == "" || cfg.Security.APIKey == config.AutoKey {
			return errors.New("no API key configured (run 'esm init' or pass --api-key)")
		}

		store, err := s.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("Starting esm server on %s:%d\n", cfg.Bind, cfg.Port)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)

		return serve(ctx, store, cfg, s)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key for /api/v1 (default: from config)")
}

func serve(ctx context.Context, store api.IIndexStore, cfg *config.Config, s *settings) error {
	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, store, api.ServerConfig{
		Bind:            cfg.Bind,
		Port:            cfg.Port,
		APIKey:          cfg.Security.APIKey,
		MaxUploadBytes:  cfg.Security.MaxUploadBytes,
		MaxDepth:        cfg.Parser.MaxDepth,
		MaxInflateBytes: cfg.Parser.MaxInflateBytes,
	}, s.logger)
}
