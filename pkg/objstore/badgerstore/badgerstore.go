// Package badgerstore keeps objects in a badger database. Badger iterates keys in
// byte order, which gives the flat, prefix-ordered enumeration an object store offers.
package badgerstore

import (
	"bytes"
	"context"
	"io"

	"github.com/csweichel/plainrw/pkg/objstore"
	badger "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Name      string
	Prefix    string
	InMemory  bool
	WriteOnce bool
}

// Open opens (or creates) a badger database at dir.
func Open(dir string, opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(dir).WithLogger(nil)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open badger store at %s", dir)
	}
	if opts.Name == "" {
		opts.Name = "badger://" + dir
	}
	res := New(db, opts)
	res.owned = true
	return res, nil
}

func New(db *badger.DB, opts Options) *Store {
	if opts.Name == "" {
		opts.Name = "badger"
	}
	return &Store{DB: db, opts: opts}
}

var (
	_ objstore.Store              = (*Store)(nil)
	_ objstore.Writer             = (*Store)(nil)
	_ objstore.KeyGeneratorSetter = (*Store)(nil)
)

type Store struct {
	objstore.Keys

	DB    *badger.DB
	opts  Options
	owned bool
}

// Name implements objstore.Store
func (s *Store) Name() string {
	return s.opts.Name
}

// CommonKeyPrefix implements objstore.Store
func (s *Store) CommonKeyPrefix() string {
	return s.opts.Prefix
}

// IsWriteOnce implements objstore.Store
func (s *Store) IsWriteOnce() bool {
	return s.opts.WriteOnce
}

// Iterate implements objstore.Store
func (s *Store) Iterate(ctx context.Context, prefix string, fn func(objstore.Object) error) error {
	return s.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			err := fn(objstore.Object{
				Key:  string(item.KeyCopy(nil)),
				Size: item.ValueSize(),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Read implements objstore.Store
func (s *Store) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	var val []byte
	err := s.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, objstore.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", key)
	}
	return io.NopCloser(bytes.NewReader(val)), nil
}

// Write implements objstore.Writer
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	err := s.DB.Update(func(txn *badger.Txn) error {
		if s.opts.WriteOnce {
			_, err := txn.Get([]byte(key))
			if err == nil {
				return objstore.ErrWriteOnce
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return errors.Wrapf(err, "cannot write %s", key)
	}
	log.WithField("key", key).WithField("size", len(data)).Debug("stored object")
	return nil
}

// ObjectKey returns the object key for a local path
func (s *Store) ObjectKey(path string) string {
	return s.Keys.ObjectKey(s.opts.Prefix, path)
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.DB.Close()
}
