package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/csweichel/plainrw/pkg/config"
	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/objstore/badgerstore"
	"github.com/csweichel/plainrw/pkg/objstore/blobstore"
	"github.com/csweichel/plainrw/pkg/plainrw"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootOpts struct {
	Verbose bool
	Config  string
	Prefix  string
	Workers int
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "plainrw",
	Short: "Presents a flat object store as a rewritable directory tree",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootOpts.Verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.Config, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&rootOpts.Prefix, "prefix", "", "common key prefix of the store")
	rootCmd.PersistentFlags().IntVar(&rootOpts.Workers, "workers", 0, "number of prefix markers read concurrently")
}

// loadConfig merges the config file (if any) with the command line
func loadConfig(storeURL string) *config.Config {
	cfg := config.Default()
	if rootOpts.Config != "" {
		var err error
		cfg, err = config.Load(rootOpts.Config)
		if err != nil {
			log.WithError(err).Fatal("cannot load config")
		}
	}
	if storeURL != "" {
		cfg.Store.URL = storeURL
	}
	if rootOpts.Prefix != "" {
		cfg.Store.Prefix = rootOpts.Prefix
	}
	if rootOpts.Workers > 0 {
		cfg.Workers = rootOpts.Workers
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	return cfg
}

type closableStore interface {
	objstore.Store
	Close() error
}

// openStore opens badger:///path/to/dir with badger, everything else with gocloud
func openStore(ctx context.Context, cfg config.StoreConfig) (closableStore, error) {
	if dir := strings.TrimPrefix(cfg.URL, "badger://"); dir != cfg.URL {
		return badgerstore.Open(dir, badgerstore.Options{
			Prefix:    cfg.Prefix,
			WriteOnce: cfg.WriteOnce,
		})
	}
	return blobstore.Open(ctx, cfg.URL, blobstore.Options{
		Prefix:    cfg.Prefix,
		WriteOnce: cfg.WriteOnce,
	})
}

// attach opens the configured store and loads its metadata
func attach(ctx context.Context, cfg *config.Config) (closableStore, *plainrw.Storage) {
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("cannot open store")
	}

	hooks, err := plainrw.NewPrometheusHooks(prometheus.DefaultRegisterer, cfg.Disk)
	if err != nil {
		log.WithError(err).Fatal("cannot register metrics")
	}

	storage, err := plainrw.New(ctx, store, cfg.StoragePathPrefix,
		plainrw.WithLogger(log.WithField("disk", cfg.Disk)),
		plainrw.WithWorkers(cfg.Workers),
		plainrw.WithHooks(hooks),
	)
	if err != nil {
		store.Close()
		log.WithError(err).Fatal("cannot attach storage")
	}
	return store, storage
}
