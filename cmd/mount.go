package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/csweichel/plainrw/pkg/idx"
	"github.com/csweichel/plainrw/pkg/wsfs"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	daemon "github.com/sevlyar/go-daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mountOpts struct {
	DefaultUID  uint32
	DefaultGID  uint32
	AllowOther  bool
	Daemon      bool
	PidFile     string
	LogFile     string
	MetricsAddr string
	ListingTTL  time.Duration
}

// mountCmd represents the mount command
var mountCmd = &cobra.Command{
	Use:   "mount <storeURL> <mountpoint>",
	Short: "Mounts the store read-only",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if mountOpts.Daemon {
			dctx := &daemon.Context{
				PidFileName: mountOpts.PidFile,
				PidFilePerm: 0644,
				LogFileName: mountOpts.LogFile,
				LogFilePerm: 0640,
				Umask:       027,
			}
			child, err := dctx.Reborn()
			if err != nil {
				log.WithError(err).Fatal("cannot daemonize")
			}
			if child != nil {
				fmt.Printf("mounting in background (pid %d)\n", child.Pid)
				return
			}
			defer dctx.Release()
		}

		t0 := time.Now()
		ctx := context.Background()
		cfg := loadConfig(args[0])
		if mountOpts.MetricsAddr != "" {
			cfg.MetricsAddr = mountOpts.MetricsAddr
		}

		store, storage := attach(ctx, cfg)
		defer store.Close()
		defer storage.Close()

		if cfg.MetricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				err := http.ListenAndServe(cfg.MetricsAddr, mux)
				log.WithError(err).WithField("addr", cfg.MetricsAddr).Error("metrics server stopped")
			}()
		}

		root := wsfs.New(idx.OpenStorageIndex(storage, store, cfg.StoragePathPrefix), wsfs.Options{
			DefaultUID: mountOpts.DefaultUID,
			DefaultGID: mountOpts.DefaultGID,
			ListingTTL: mountOpts.ListingTTL,
		})

		mnt := args[1]
		os.Mkdir(mnt, 0755)
		server, err := fs.Mount(mnt, root, &fs.Options{
			MountOptions: fuse.MountOptions{
				Debug:      rootOpts.Verbose,
				AllowOther: mountOpts.AllowOther,
				FsName:     store.Name(),
				Name:       "plainrw",
			},
		})
		if err != nil {
			log.WithError(err).Fatal("cannot mount")
		}
		log.WithField("duration", time.Since(t0)).WithField("mountpoint", mnt).Info("mounted")
		fmt.Printf("to unmount: fusermount -u %s\n", mnt)
		server.Wait()
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
	mountCmd.Flags().Uint32Var(&mountOpts.DefaultUID, "uid", uint32(os.Getuid()), "owner of all files")
	mountCmd.Flags().Uint32Var(&mountOpts.DefaultGID, "gid", uint32(os.Getgid()), "group of all files")
	mountCmd.Flags().BoolVar(&mountOpts.AllowOther, "allow-other", false, "allow other users to access the mount")
	mountCmd.Flags().BoolVarP(&mountOpts.Daemon, "daemon", "d", false, "mount in the background")
	mountCmd.Flags().StringVar(&mountOpts.PidFile, "pid-file", "", "pid file when running as daemon")
	mountCmd.Flags().StringVar(&mountOpts.LogFile, "log-file", "", "log file when running as daemon")
	mountCmd.Flags().DurationVar(&mountOpts.ListingTTL, "listing-ttl", time.Second, "reuse directory listings for this long, negative to always list")
	mountCmd.Flags().StringVar(&mountOpts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}
