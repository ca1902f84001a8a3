/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/index"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Decode a master file and persist its record index",
	Long: `Decode a master file and save an entry per record to the index store
under the data directory. Records already indexed by an earlier run are
replaced.

Examples:
  esm index FalloutNV.esm
  esm index --name base FalloutNV.esm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = filepath.Base(args[0])
		}

		f, err := esm.DecodeFile(args[0], s.decodeOptions()...)
		if err != nil {
			return err
		}
		idx := index.Build(f)

		store, err := s.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := store.SaveRun(name, idx)
		if err != nil {
			return err
		}

		s.logger.Info("indexed file", "name", name, "run", runID.String())
		cmd.Printf("run %s: %d records indexed from %s\n", runID, idx.Len(), name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().String("name", "", "Run name (default: file base name)")
}
