package wsfs

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/csweichel/plainrw/pkg/idx"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"
)

const defaultListingTTL = time.Second

type Options struct {
	DefaultUID uint32
	DefaultGID uint32

	// ListingTTL is how long a directory listing is reused for readdir and lookups.
	// Zero means one second, a negative value lists on every request.
	ListingTTL time.Duration
}

func (o Options) listingTTL() time.Duration {
	if o.ListingTTL == 0 {
		return defaultListingTTL
	}
	return o.ListingTTL
}

func New(index idx.LazyIndex, opts Options) fs.InodeEmbedder {
	return &indexedDir{idx: index, opts: opts}
}

// indexedDir is a directory of the index. Its children are listed again once the
// previous listing is older than the listing TTL, so directories created by other
// writers show up without remounting. The root directory has no entry.
type indexedDir struct {
	fs.Inode

	idx   idx.LazyIndex
	opts  Options
	entry idx.Entry

	mu      sync.Mutex
	listed  time.Time
	entries []idx.Entry
}

var (
	_ fs.NodeGetattrer = (*indexedDir)(nil)
	_ fs.NodeReaddirer = (*indexedDir)(nil)
	_ fs.NodeLookuper  = (*indexedDir)(nil)
)

// children returns the listing of d. Resolving a path looks up every component in its
// parent, so without reuse each lookup would list the whole remote directory again.
func (d *indexedDir) children(ctx context.Context) ([]idx.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ttl := d.opts.listingTTL()
	if ttl > 0 && !d.listed.IsZero() && time.Since(d.listed) < ttl {
		return d.entries, nil
	}

	var (
		entries []idx.Entry
		err     error
	)
	if d.entry == nil {
		entries, err = d.idx.RootEntries(ctx)
	} else {
		entries, err = d.idx.Children(ctx, d.entry)
	}
	if err != nil {
		return nil, err
	}
	d.entries, d.listed = entries, time.Now()
	return entries, nil
}

func (d *indexedDir) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if d.entry == nil {
		out.Mode = 0755 | syscall.S_IFDIR
		out.Size = 6
		applyDefaults(&out.Attr, d.opts)
		return 0
	}
	return getattr(d.entry, &out.Attr, d.opts)
}

func (d *indexedDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := d.children(ctx)
	if err != nil {
		logrus.WithError(err).Warn("cannot list directory")
		return nil, syscall.EIO
	}

	res := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		res = append(res, fuse.DirEntry{
			Name: idx.Base(e),
			Mode: e.StableMode(),
		})
	}
	return fs.NewListDirStream(res), fs.OK
}

func (d *indexedDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	entries, err := d.children(ctx)
	if err != nil {
		logrus.WithError(err).WithField("name", name).Warn("cannot look up entry")
		return nil, syscall.EIO
	}

	for _, e := range entries {
		if idx.Base(e) != name {
			continue
		}

		if errno := getattr(e, &out.Attr, d.opts); errno != 0 {
			return nil, errno
		}

		var node fs.InodeEmbedder
		if e.Dir() {
			node = &indexedDir{idx: d.idx, opts: d.opts, entry: e}
		} else {
			node = &indexedFile{file: e, opts: d.opts}
		}
		logrus.WithField("name", e.Name()).Debug("adding inode")
		return d.NewInode(ctx, node, fs.StableAttr{Mode: e.StableMode()}), fs.OK
	}
	return nil, syscall.ENOENT
}

// indexedFile is a file read from an indexed filesystem.
type indexedFile struct {
	fs.Inode
	file idx.Entry
	opts Options
}

var _ fs.NodeGetattrer = (*indexedFile)(nil)

func (zf *indexedFile) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return getattr(zf.file, &out.Attr, zf.opts)
}

var _ fs.NodeOpener = (*indexedFile)(nil)

func (zf *indexedFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, 0, fs.OK
}

var _ fs.NodeReader = (*indexedFile)(nil)

func (zf *indexedFile) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := zf.file.Read(dest, off)
	if err != nil && !errors.Is(err, io.EOF) {
		logrus.WithError(err).WithField("name", zf.file.Name()).Warn("cannot read file")
		return nil, syscall.EIO
	}

	return fuse.ReadResultData(dest[:n]), fs.OK
}

func getattr(e idx.Entry, out *fuse.Attr, opts Options) syscall.Errno {
	defaults, err := e.Getattr(out)
	if err != nil {
		return syscall.EIO
	}
	if defaults {
		applyDefaults(out, opts)
	}
	return 0
}

func applyDefaults(out *fuse.Attr, opts Options) {
	out.Uid = opts.DefaultUID
	out.Gid = opts.DefaultGID
}
