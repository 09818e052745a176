package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var lsOpts struct {
	Long bool
}

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls <storeURL> [localDir]",
	Short: "Lists the direct children of a local directory",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig(args[0])

		store, storage := attach(ctx, cfg)
		defer store.Close()
		defer storage.Close()

		var dir string
		if len(args) > 1 {
			dir = args[1]
		}
		children, err := storage.ReadDirectory(ctx, dir)
		if err != nil {
			log.WithError(err).Fatal("cannot list directory")
		}

		for _, c := range children {
			name := c.Name
			if c.Dir {
				name += "/"
			}
			if lsOpts.Long {
				fmt.Printf("%10d  %s  %s\n", c.Size, name, c.Key)
				continue
			}
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolVarP(&lsOpts.Long, "long", "l", false, "print size and remote key")
}
