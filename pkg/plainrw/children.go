package plainrw

import (
	"sort"
	"strings"
	"time"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/pathmap"
)

// Child is an immediate entry of a local directory.
type Child struct {
	Name string
	Dir  bool

	// Key is the object key of a file, or the remote prefix of a directory
	Key     string
	Size    int64
	ModTime time.Time
}

// DirectChildren returns the names of the immediate children of localPath, given the flat
// listing of all objects under storageKey, the remote prefix of localPath.
func DirectChildren(storageKey string, remote []objstore.Object, localPath string, paths *pathmap.Map) []string {
	children := ResolveChildren(storageKey, remote, localPath, paths)
	res := make([]string, 0, len(children))
	for _, c := range children {
		res = append(res, c.Name)
	}
	return res
}

// ResolveChildren works like DirectChildren but reports what kind of entry each child is.
//
// Remote subdirectory names need not match their local names. A subdirectory whose remote
// key is mapped in paths is reported under its local name, every other one under its remote name.
func ResolveChildren(storageKey string, remote []objstore.Object, localPath string, paths *pathmap.Map) []Child {
	// remote prefix -> local subdirectory name
	subdirs := make(map[string]string)
	for _, e := range paths.Subtree(localPath) {
		rest := e.LocalPath[len(localPath):]
		if strings.Count(rest, "/") != 1 || !strings.HasSuffix(rest, "/") {
			continue
		}
		subdirs[e.RemotePrefix] = rest[:len(rest)-1]
	}

	var (
		res   []Child
		index = make(map[string]int)
	)
	add := func(c Child) {
		if i, exists := index[c.Name]; exists {
			if c.Dir && !res[i].Dir {
				res[i] = c
			}
			return
		}
		index[c.Name] = len(res)
		res = append(res, c)
	}

	for _, obj := range remote {
		if !strings.HasPrefix(obj.Key, storageKey) {
			continue
		}
		rest := obj.Key[len(storageKey):]

		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			if rest == "" || rest == MarkerFileName {
				continue
			}
			add(Child{Name: rest, Key: obj.Key, Size: obj.Size, ModTime: obj.ModTime})
			continue
		}

		remoteDir := obj.Key[:len(storageKey)+slash]
		name, mapped := subdirs[remoteDir]
		if !mapped {
			name = rest[:slash]
		}
		if name == "" {
			continue
		}
		add(Child{Name: name, Dir: true, Key: remoteDir})
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}
