package plainrw

import (
	"strings"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/pathmap"
	"github.com/google/uuid"
)

var _ objstore.KeyGenerator = (*KeyGenerator)(nil)

// KeyGenerator assigns object keys consistent with the path map it shares with the storage.
type KeyGenerator struct {
	commonPrefix string
	paths        *pathmap.Map
	random       func() string
}

func NewKeyGenerator(commonPrefix string, paths *pathmap.Map) *KeyGenerator {
	return &KeyGenerator{
		commonPrefix: commonPrefix,
		paths:        paths,
		random: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// GenerateObjectKey implements objstore.KeyGenerator. Paths below a mapped directory are
// stored under that directory's remote prefix, all other paths under the common prefix.
func (g *KeyGenerator) GenerateObjectKey(path string) string {
	if e, ok := g.paths.Nearest(path); ok {
		return e.RemotePrefix + "/" + path[len(e.LocalPath):]
	}
	return g.commonPrefix + path
}

// GenerateDirectoryPrefix returns the remote prefix of localDir. An unmapped directory is
// mapped to a fresh random prefix below the storage key of its parent first, which keeps it
// visible in listings of the parent. Storing the prefix marker is up to the caller.
func (g *KeyGenerator) GenerateDirectoryPrefix(localDir string) (prefix string, created bool) {
	if p, ok := g.paths.Get(localDir); ok {
		return p, false
	}
	return g.paths.Insert(localDir, g.GenerateObjectKey(parentDir(localDir))+g.random())
}

// parentDir returns the parent of a directory path, "a/" for "a/b/" and "" for "a/".
func parentDir(dir string) string {
	dir = strings.TrimSuffix(dir, "/")
	return dir[:strings.LastIndexByte(dir, '/')+1]
}
