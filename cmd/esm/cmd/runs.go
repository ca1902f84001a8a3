package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the files indexed so far",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}

		store, err := s.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tNAME\tCREATED\tRECORDS\tGROUPS")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
				r.ID, r.Name, r.Created.Format(time.RFC3339), r.Summary.Records, r.Summary.Groups)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
