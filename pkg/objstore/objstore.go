package objstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is the root of every "object does not exist" error returned by a Store.
	ErrNotFound = errors.New("object not found")

	// ErrWriteOnce is returned when a store forbids overwriting objects but the caller needs to.
	ErrWriteOnce = errors.New("object storage is write-once")
)

// NotFoundError conveys that a specific object key was not found in the store.
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", e.Key, ErrNotFound.Error())
}

func (e NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound reports whether err represents a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Object is a single entry of a flat key listing
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store is a flat, key-addressed object store. It has no rename and no notion of directories.
type Store interface {
	Name() string

	// CommonKeyPrefix is the root under which all keys of this store live.
	CommonKeyPrefix() string

	// IsWriteOnce reports whether the store forbids overwriting or appending to objects.
	IsWriteOnce() bool

	// Iterate calls fn for every key starting with prefix, in lexicographic key order.
	// Iteration stops at the first error returned by fn, which is then returned.
	Iterate(ctx context.Context, prefix string, fn func(Object) error) error

	// Read opens an object for reading. A missing object yields a NotFoundError.
	Read(ctx context.Context, key string) (io.ReadCloser, error)
}

// Writer is implemented by stores that can store objects.
type Writer interface {
	Write(ctx context.Context, key string, data []byte) error
}

// KeyGenerator turns a local path into the object key it is stored under.
type KeyGenerator interface {
	GenerateObjectKey(path string) string
}

// KeyGeneratorSetter is implemented by stores that delegate key generation.
type KeyGeneratorSetter interface {
	SetKeyGenerator(gen KeyGenerator)
}

// List collects all objects under prefix.
func List(ctx context.Context, s Store, prefix string) ([]Object, error) {
	var res []Object
	err := s.Iterate(ctx, prefix, func(o Object) error {
		res = append(res, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReadAll reads an object to end-of-stream.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	r, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", key)
	}
	return buf, nil
}

// KeyMapper is implemented by stores that can tell which key a local path is stored under.
type KeyMapper interface {
	ObjectKey(path string) string
}
