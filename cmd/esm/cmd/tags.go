package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/codec"
)

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags <TAG>",
	Short: "List the indexed records of one type",
	Long: `List every indexed record of a four character record type, ordered by
form id.

Examples:
  esm tags WEAP
  esm tags NPC_`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		tag, err := codec.ParseTag(args[0])
		if err != nil {
			return err
		}

		store, err := s.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.ListTag(tag.String())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FORMID\tEDITOR ID\tNAME\tPATH")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.FormID, e.EditorID, e.Name, strings.Join(e.Path, "/"))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}
