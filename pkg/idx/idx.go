package idx

import (
	"context"

	"github.com/hanwen/go-fuse/v2/fuse"
)

type LazyIndex interface {
	RootEntries(ctx context.Context) ([]Entry, error)
	Children(ctx context.Context, of Entry) ([]Entry, error)
}

type Entry interface {
	// Name is the full local path of the entry, without trailing slash
	Name() string
	Dir() bool
	Getattr(out *fuse.Attr) (applyDefaults bool, err error)

	// Mode is used on the stableAttr of the inode
	StableMode() uint32

	Read(dst []byte, offset int64) (n int, err error)
}
