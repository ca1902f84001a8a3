/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/esm"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the chunk tree of a master file",
	Long: `Decode a master file and print one line per group, record and field,
indented by nesting depth.

Examples:
  esm dump FalloutNV.esm
  esm dump --log-level debug DeadMoney.esm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}

		opts := append(s.decodeOptions(), esm.WithTrace(cmd.OutOrStdout()))
		f, err := esm.DecodeFile(args[0], opts...)
		if err != nil {
			return err
		}

		cmd.Printf("%d records in %d groups\n", f.Stats.Records, f.Stats.Groups)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
