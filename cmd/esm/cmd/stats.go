/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/index"
	"github.com/ssargent/esmkit/pkg/parser"
)

// fileStats summarizes one decoded master file
type fileStats struct {
	Path      string        `json:"path"`
	Localized bool          `json:"localized"`
	Summary   index.Summary `json:"summary"`
	Parser    parser.Stats  `json:"parser"`
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <file>...",
	Short: "Count the records of one or more master files",
	Long: `Decode master files and report per record type counts plus parser
statistics. Files are decoded concurrently, each with its own parser.

Examples:
  esm stats FalloutNV.esm
  esm stats --json FalloutNV.esm DeadMoney.esm`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		results, err := collectStats(args, s.decodeOptions())
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		for _, r := range results {
			if err := printStats(cmd.OutOrStdout(), r); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("json", false, "Print the statistics as JSON")
}

// collectStats decodes every path and returns the results in argument order
func collectStats(paths []string, opts []esm.Option) ([]fileStats, error) {
	results := make([]fileStats, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			f, err := esm.DecodeFile(path, opts...)
			if err != nil {
				return err
			}
			results[i] = fileStats{
				Path:      path,
				Localized: f.Localized,
				Summary:   index.Build(f).Summary(),
				Parser:    f.Stats,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printStats(w io.Writer, r fileStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", r.Path)
	fmt.Fprintf(tw, "  localized\t%t\n", r.Localized)
	fmt.Fprintf(tw, "  groups\t%d\n", r.Parser.Groups)
	fmt.Fprintf(tw, "  records\t%d\n", r.Parser.Records)
	fmt.Fprintf(tw, "  fields\t%d\n", r.Parser.Fields)
	fmt.Fprintf(tw, "  compressed\t%d\n", r.Parser.Compressed)
	fmt.Fprintf(tw, "  skipped\t%d\n", r.Parser.Skipped)
	fmt.Fprintf(tw, "  inflated bytes\t%d\n", r.Parser.InflatedBytes)

	tags := make([]string, 0, len(r.Summary.ByTag))
	for tag := range r.Summary.ByTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(tw, "  %s\t%d\n", tag, r.Summary.ByTag[tag])
	}
	return tw.Flush()
}
