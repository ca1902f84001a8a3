package cmd

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/index"
	"github.com/ssargent/esmkit/pkg/storage"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <formid|editorid>",
	Short: "Look up an indexed record",
	Long: `Look up an indexed record by hexadecimal form id or by editor id.
Arguments that parse as hex are tried as a form id first.

Examples:
  esm get 0001A4D7
  esm get Gun10mm`,
	Args: cobra.ExactArgs(1),
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

		entry, err := lookup(store, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}

type entryFinder interface {
	Get(id codec.FormID) (index.Entry, error)
	FindEditorID(name string) (index.Entry, error)
}

// lookup resolves key as a form id, falling back to an editor id
func lookup(store entryFinder, key string) (index.Entry, error) {
	if id, err := codec.ParseFormID(key); err == nil {
		entry, err := store.Get(id)
		if err == nil || !errors.Is(err, storage.ErrNotFound) {
			return entry, err
		}
	}
	return store.FindEditorID(key)
}
