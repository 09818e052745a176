// Package pathmap holds the mapping from local directory paths to the remote key
// prefixes their objects live under.
//
// The map is ordered by local path in byte order, so an ascending scan that starts at
// a prefix and stops at the first key not carrying it enumerates exactly that subtree.
// Every accessor copies its result out before releasing the lock; callers never run
// code, let alone I/O, while the lock is held.
package pathmap

import (
	"strings"
	"sync"

	"github.com/google/btree"
)

// Entry maps one local directory (ending in a slash) to its remote prefix.
type Entry struct {
	LocalPath    string `json:"localPath"`
	RemotePrefix string `json:"remotePrefix"`
}

func less(a, b Entry) bool {
	return a.LocalPath < b.LocalPath
}

type Map struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[Entry]
}

func New() *Map {
	return &Map{tree: btree.NewG[Entry](32, less)}
}

// Insert adds a mapping unless the local path is already mapped. It returns the
// remote prefix that is in effect afterwards and whether the new mapping was inserted.
func (m *Map) Insert(localPath, remotePrefix string) (existing string, inserted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.tree.Get(Entry{LocalPath: localPath}); ok {
		return e.RemotePrefix, false
	}
	m.tree.ReplaceOrInsert(Entry{LocalPath: localPath, RemotePrefix: remotePrefix})
	return remotePrefix, true
}

// Get returns the remote prefix of a local path
func (m *Map) Get(localPath string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.tree.Get(Entry{LocalPath: localPath})
	return e.RemotePrefix, ok
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Entries returns all entries ordered by local path
func (m *Map) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]Entry, 0, m.tree.Len())
	m.tree.Ascend(func(e Entry) bool {
		res = append(res, e)
		return true
	})
	return res
}

// Subtree returns the entries whose local path starts with prefix, ordered by local path.
func (m *Map) Subtree(prefix string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []Entry
	m.tree.AscendGreaterOrEqual(Entry{LocalPath: prefix}, func(e Entry) bool {
		if !strings.HasPrefix(e.LocalPath, prefix) {
			return false
		}
		res = append(res, e)
		return true
	})
	return res
}

// Nearest returns the entry of the deepest mapped directory containing path.
// A directory contains itself, so Nearest("/a/") finds "/a/" if it is mapped.
func (m *Map) Nearest(path string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for dir := path; ; {
		idx := strings.LastIndexByte(dir, '/')
		if idx < 0 {
			return Entry{}, false
		}
		dir = dir[:idx+1]
		if e, ok := m.tree.Get(Entry{LocalPath: dir}); ok {
			return e, true
		}
		dir = dir[:idx]
	}
}
