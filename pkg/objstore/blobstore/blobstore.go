// Package blobstore adapts a gocloud.dev blob bucket to objstore.Store.
package blobstore

import (
	"context"
	"io"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// backends that can be opened by URL
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

type Options struct {
	// Prefix is the common key prefix of the store
	Prefix string

	// WriteOnce marks buckets that reject overwrites (e.g. object lock)
	WriteOnce bool
}

// Open opens a bucket by URL, e.g. mem://, file:///tmp/bucket or s3://bucket?region=eu-west-1
func Open(ctx context.Context, url string, opts Options) (*Store, error) {
	bkt, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open bucket %s", url)
	}
	res := New(bkt, opts)
	res.name = url
	return res, nil
}

func New(bkt *blob.Bucket, opts Options) *Store {
	return &Store{
		bucket: bkt,
		opts:   opts,
		name:   "blob",
	}
}

var (
	_ objstore.Store              = (*Store)(nil)
	_ objstore.Writer             = (*Store)(nil)
	_ objstore.KeyGeneratorSetter = (*Store)(nil)
)

type Store struct {
	objstore.Keys

	bucket *blob.Bucket
	opts   Options
	name   string
}

// Name implements objstore.Store
func (s *Store) Name() string {
	return s.name
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
	it := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "cannot list %s", prefix)
		}
		if obj.IsDir {
			continue
		}

		err = fn(objstore.Object{
			Key:     obj.Key,
			Size:    obj.Size,
			ModTime: obj.ModTime,
		})
		if err != nil {
			return err
		}
	}
}

// Read implements objstore.Store
func (s *Store) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, objstore.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", key)
	}
	return r, nil
}

// Write implements objstore.Writer
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	err := s.bucket.WriteAll(ctx, key, data, nil)
	if err != nil {
		return errors.Wrapf(err, "cannot write %s", key)
	}
	return nil
}

// ObjectKey returns the object key for a local path
func (s *Store) ObjectKey(path string) string {
	return s.Keys.ObjectKey(s.opts.Prefix, path)
}

func (s *Store) Close() error {
	return s.bucket.Close()
}
