package cmd

import (
	"context"
	"os"

	"github.com/csweichel/plainrw/pkg/objstore"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var putOpts struct {
	Raw bool
}

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <storeURL> <localPath> <file>",
	Short: "Stores a file under the object key of a local path",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig(args[0])

		content, err := os.ReadFile(args[2])
		if err != nil {
			log.WithError(err).Fatal("cannot read source file")
		}

		store, storage := attach(ctx, cfg)
		defer store.Close()
		defer storage.Close()

		w, ok := store.(objstore.Writer)
		if !ok {
			log.WithField("store", store.Name()).Fatal("store cannot be written to")
		}

		key := args[1]
		if !putOpts.Raw {
			key = storage.ObjectKey(args[1])
		}
		err = w.Write(ctx, key, content)
		if err != nil {
			log.WithError(err).Fatal("cannot store object")
		}
		log.WithField("key", key).WithField("size", len(content)).Info("stored object")
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().BoolVar(&putOpts.Raw, "raw", false, "use the second argument as object key instead of a local path")
}
