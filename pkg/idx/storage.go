package idx

import (
	"context"
	"io"
	"path"
	"syscall"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/plainrw"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OpenStorageIndex exposes the local directory root of an attached storage as an index.
// Objects are read from store, which must be the store the storage is attached to.
func OpenStorageIndex(storage *plainrw.Storage, store objstore.Store, root string) LazyIndex {
	return &storageIndex{
		Storage: storage,
		Store:   store,
		Root:    root,
	}
}

var _ LazyIndex = ((*storageIndex)(nil))

type storageIndex struct {
	Storage *plainrw.Storage
	Store   objstore.Store
	Root    string
}

func (idx *storageIndex) list(ctx context.Context, dir string) ([]Entry, error) {
	children, err := idx.Storage.ReadDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}

	res := make([]Entry, 0, len(children))
	for _, c := range children {
		res = append(res, &storageEntry{
			Store: idx.Store,
			Path:  dir + c.Name,
			Child: c,
		})
	}
	log.WithField("dir", dir).WithField("children", len(res)).Debug("listed directory")
	return res, nil
}

// Children implements LazyIndex
func (idx *storageIndex) Children(ctx context.Context, of Entry) ([]Entry, error) {
	if !of.Dir() {
		return nil, nil
	}
	return idx.list(ctx, of.Name()+"/")
}

// RootEntries implements LazyIndex
func (idx *storageIndex) RootEntries(ctx context.Context) ([]Entry, error) {
	return idx.list(ctx, idx.Root)
}

type storageEntry struct {
	Store objstore.Store
	Path  string
	Child plainrw.Child
}

var _ Entry = (*storageEntry)(nil)

// Name implements Entry
func (e *storageEntry) Name() string {
	return e.Path
}

// Dir implements Entry
func (e *storageEntry) Dir() bool {
	return e.Child.Dir
}

// Getattr implements Entry
func (e *storageEntry) Getattr(out *fuse.Attr) (applyDefaults bool, err error) {
	if e.Child.Dir {
		out.Mode = 0755 | syscall.S_IFDIR
		return true, nil
	}

	out.Mode = 0644 | syscall.S_IFREG
	out.Size = uint64(e.Child.Size)
	if !e.Child.ModTime.IsZero() {
		out.Mtime = uint64(e.Child.ModTime.Unix())
		out.Atime = out.Mtime
	}
	return true, nil
}

// StableMode implements Entry
func (e *storageEntry) StableMode() uint32 {
	if e.Child.Dir {
		return syscall.S_IFDIR
	}
	return syscall.S_IFREG
}

// Read implements Entry. Contents are not cached, every read fetches the object again.
func (e *storageEntry) Read(dst []byte, offset int64) (n int, err error) {
	if e.Child.Dir {
		return 0, syscall.EISDIR
	}
	if offset >= e.Child.Size {
		return 0, io.EOF
	}

	r, err := e.Store.Read(context.Background(), e.Child.Key)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	_, err = io.CopyN(io.Discard, r, offset)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot seek %s", e.Child.Key)
	}
	n, err = io.ReadFull(r, dst)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

// Base returns the name of an entry within its directory
func Base(e Entry) string {
	return path.Base(e.Name())
}
