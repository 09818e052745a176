package plainrw

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/pathmap"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MarkerFileName is the object stored in every remote directory prefix. Its body is the
// local path the prefix represents.
const MarkerFileName = "prefix.path"

var errStopScan = errors.New("scan stopped")

type LoadOptions struct {
	// Workers bounds the number of markers read concurrently
	Workers int
	Logger  logrus.FieldLogger
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU() * 4
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// LoadStats describes the outcome of a metadata load
type LoadStats struct {
	ScannedFiles int `json:"scannedFiles"`
	Markers      int `json:"markers"`
	Vanished     int `json:"vanished"`
	Conflicts    int `json:"conflicts"`
	Directories  int `json:"directories"`
}

// LoadPathMap scans every key under root and builds the path map from the prefix markers it finds.
//
// Markers are read concurrently. A marker that disappears before it is read was removed
// together with its directory by someone else and is skipped. If two markers claim the same
// local path the first one inserted wins. Any other read failure aborts the load: no further
// markers are scheduled, the ones in flight drain and the first failure is returned.
func LoadPathMap(ctx context.Context, store objstore.Store, root string, opts LoadOptions) (*pathmap.Map, LoadStats, error) {
	opts = opts.withDefaults()
	log := opts.Logger.WithField("store", store.Name())

	var (
		res   = pathmap.New()
		stats LoadStats

		vanished, conflicts int64

		eg       errgroup.Group
		failed   = make(chan struct{})
		failOnce sync.Once
	)
	eg.SetLimit(opts.Workers)

	log.WithField("root", root).Debug("loading metadata")
	scanErr := store.Iterate(ctx, root, func(obj objstore.Object) error {
		select {
		case <-failed:
			return errStopScan
		default:
		}

		stats.ScannedFiles++
		idx := strings.LastIndexByte(obj.Key, '/')
		if obj.Key[idx+1:] != MarkerFileName {
			return nil
		}
		if idx < 0 {
			log.WithField("key", obj.Key).Warn("prefix marker has no parent prefix, ignoring")
			return nil
		}
		stats.Markers++

		key, remotePrefix := obj.Key, obj.Key[:idx]
		eg.Go(func() error {
			// units already queued when a load failed never start reading
			select {
			case <-failed:
				return nil
			default:
			}

			buf, err := objstore.ReadAll(ctx, store, key)
			if objstore.IsNotFound(err) {
				log.WithField("key", key).Debug("prefix marker vanished during load")
				atomic.AddInt64(&vanished, 1)
				return nil
			}
			if err != nil {
				failOnce.Do(func() { close(failed) })
				return errors.Wrapf(err, "cannot load prefix marker %s", key)
			}

			localPath := string(buf)
			existing, inserted := res.Insert(localPath, remotePrefix)
			if !inserted {
				// replicated tables write the same local path into the marker of each replica
				atomic.AddInt64(&conflicts, 1)
				log.WithFields(logrus.Fields{
					"localPath":    localPath,
					"remotePrefix": existing,
					"ignored":      remotePrefix,
				}).Warn("local path is already mapped to a remote prefix, ignoring")
			}
			return nil
		})
		return nil
	})

	err := eg.Wait()
	if err == nil && scanErr != nil && !errors.Is(scanErr, errStopScan) {
		err = errors.Wrapf(scanErr, "cannot scan %s", root)
	}
	if err != nil {
		return nil, stats, err
	}

	stats.Vanished = int(vanished)
	stats.Conflicts = int(conflicts)
	stats.Directories = res.Len()
	log.WithField("files", stats.ScannedFiles).WithField("directories", stats.Directories).Debug("loaded metadata")

	return res, stats, nil
}
