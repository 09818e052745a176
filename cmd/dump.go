package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/csweichel/plainrw/pkg/pathmap"
	"github.com/csweichel/plainrw/pkg/plainrw"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <storeURL>",
	Short: "Dumps the entire path map as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig(args[0])

		store, storage := attach(ctx, cfg)
		defer store.Close()
		defer storage.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err := enc.Encode(struct {
			Stats   plainrw.LoadStats `json:"stats"`
			Entries []pathmap.Entry   `json:"entries"`
		}{
			Stats:   storage.Stats(),
			Entries: storage.PathMap().Entries(),
		})
		if err != nil {
			log.WithError(err).Fatal("cannot encode path map")
		}
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
