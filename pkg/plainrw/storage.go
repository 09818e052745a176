// Package plainrw presents a flat object store as a hierarchy of local directories.
//
// Every remote directory prefix holds a marker object naming the local directory it
// stands for. On attach all markers are loaded into a path map; from then on the map
// decides where new objects go and how directory listings are reconstructed. Because the
// mapping is indirect, a local directory can move to a fresh remote prefix without renaming
// any remote key.
package plainrw

import (
	"context"
	"strings"
	"sync"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/pathmap"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type options struct {
	log     logrus.FieldLogger
	workers int
	hooks   Hooks
}

type Option func(*options)

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithWorkers bounds the number of markers read concurrently during attach
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// Storage is the metadata of an attached rewritable object store.
type Storage struct {
	store             objstore.Store
	storagePathPrefix string
	paths             *pathmap.Map
	keys              *KeyGenerator
	hooks             Hooks
	log               logrus.FieldLogger
	stats             LoadStats

	closeOnce sync.Once
}

// New attaches to store. Write-once stores are rejected before anything is read, since every
// directory needs its marker written next to objects that may already exist.
// New either returns a fully loaded storage or an error.
func New(ctx context.Context, store objstore.Store, storagePathPrefix string, opts ...Option) (*Storage, error) {
	o := options{
		log:   logrus.StandardLogger(),
		hooks: NopHooks{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if store.IsWriteOnce() {
		return nil, errors.Wrapf(objstore.ErrWriteOnce, "rewritable metadata is not compatible with store %s", store.Name())
	}

	paths, stats, err := LoadPathMap(ctx, store, store.CommonKeyPrefix(), LoadOptions{
		Workers: o.workers,
		Logger:  o.log,
	})
	if err != nil {
		return nil, err
	}

	keys := NewKeyGenerator(store.CommonKeyPrefix(), paths)
	if setter, ok := store.(objstore.KeyGeneratorSetter); ok {
		setter.SetKeyGenerator(keys)
	}

	o.hooks.OnAttach(paths.Len())
	o.log.WithFields(logrus.Fields{
		"store":       store.Name(),
		"prefix":      storagePathPrefix,
		"directories": stats.Directories,
		"conflicts":   stats.Conflicts,
	}).Info("attached rewritable metadata")

	return &Storage{
		store:             store,
		storagePathPrefix: storagePathPrefix,
		paths:             paths,
		keys:              keys,
		hooks:             o.hooks,
		log:               o.log,
		stats:             stats,
	}, nil
}

// Close detaches the storage. Calling it more than once has no further effect.
func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		s.hooks.OnDetach(s.paths.Len())
	})
	return nil
}

func (s *Storage) PathMap() *pathmap.Map {
	return s.paths
}

func (s *Storage) KeyGenerator() *KeyGenerator {
	return s.keys
}

func (s *Storage) Stats() LoadStats {
	return s.stats
}

func (s *Storage) StoragePathPrefix() string {
	return s.storagePathPrefix
}

// RemotePrefix returns the remote prefix a local directory is mapped to
func (s *Storage) RemotePrefix(localDir string) (string, bool) {
	return s.paths.Get(asDir(localDir))
}

// DirectoryExists reports whether localDir is the root or a mapped directory
func (s *Storage) DirectoryExists(localDir string) bool {
	localDir = asDir(localDir)
	if localDir == "" || localDir == "/" {
		return true
	}
	_, ok := s.paths.Get(localDir)
	return ok
}

// ListDirectory returns the names of the immediate children of localDir
func (s *Storage) ListDirectory(ctx context.Context, localDir string) ([]string, error) {
	children, err := s.ReadDirectory(ctx, localDir)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(children))
	for _, c := range children {
		res = append(res, c.Name)
	}
	return res, nil
}

// ReadDirectory returns the immediate children of localDir
func (s *Storage) ReadDirectory(ctx context.Context, localDir string) ([]Child, error) {
	localDir = asDir(localDir)
	storageKey := s.keys.GenerateObjectKey(localDir)
	if storageKey != "" && !strings.HasSuffix(storageKey, "/") {
		storageKey += "/"
	}

	remote, err := objstore.List(ctx, s.store, storageKey)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %s", localDir)
	}
	s.log.WithField("localDir", localDir).WithField("storageKey", storageKey).WithField("objects", len(remote)).Debug("listed directory")

	return ResolveChildren(storageKey, remote, localDir, s.paths), nil
}

// ObjectKey returns the key a local file is stored under
func (s *Storage) ObjectKey(path string) string {
	return s.keys.GenerateObjectKey(path)
}

func asDir(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
