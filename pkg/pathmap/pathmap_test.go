package pathmap_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/csweichel/plainrw/pkg/pathmap"
	"github.com/google/go-cmp/cmp"
)

func newTestMap(entries ...string) *pathmap.Map {
	m := pathmap.New()
	for i := 0; i+1 < len(entries); i += 2 {
		m.Insert(entries[i], entries[i+1])
	}
	return m
}

func TestInsert(t *testing.T) {
	m := pathmap.New()

	existing, inserted := m.Insert("/a/", "r1")
	if !inserted || existing != "r1" {
		t.Errorf("first insert: got (%q, %v), want (\"r1\", true)", existing, inserted)
	}

	existing, inserted = m.Insert("/a/", "r2")
	if inserted || existing != "r1" {
		t.Errorf("second insert: got (%q, %v), want (\"r1\", false)", existing, inserted)
	}

	if p, _ := m.Get("/a/"); p != "r1" {
		t.Errorf("Get() = %q, want r1", p)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestSubtree(t *testing.T) {
	m := newTestMap(
		"/a/", "r0",
		"/a/b/", "r1",
		"/a/b/c/", "r2",
		"/a/d/", "r3",
		"/ab/", "r4",
		"/", "r5",
		"/b/", "r6",
	)

	tests := []struct {
		Name        string
		Prefix      string
		Expectation []pathmap.Entry
	}{
		{
			Name:   "subtree",
			Prefix: "/a/",
			Expectation: []pathmap.Entry{
				{LocalPath: "/a/", RemotePrefix: "r0"},
				{LocalPath: "/a/b/", RemotePrefix: "r1"},
				{LocalPath: "/a/b/c/", RemotePrefix: "r2"},
				{LocalPath: "/a/d/", RemotePrefix: "r3"},
			},
		},
		{
			Name:   "leaf",
			Prefix: "/a/b/c/",
			Expectation: []pathmap.Entry{
				{LocalPath: "/a/b/c/", RemotePrefix: "r2"},
			},
		},
		{
			Name:        "unknown",
			Prefix:      "/x/",
			Expectation: nil,
		},
		{
			Name:        "sibling with common prefix is not part of the subtree",
			Prefix:      "/ab/c/",
			Expectation: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			act := m.Subtree(test.Prefix)
			if diff := cmp.Diff(test.Expectation, act); diff != "" {
				t.Errorf("Subtree() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNearest(t *testing.T) {
	m := newTestMap(
		"a/", "r1",
		"a/b/c/", "r2",
	)

	type Expectation struct {
		Entry pathmap.Entry
		Found bool
	}
	tests := []struct {
		Path        string
		Expectation Expectation
	}{
		{Path: "a/", Expectation: Expectation{Entry: pathmap.Entry{LocalPath: "a/", RemotePrefix: "r1"}, Found: true}},
		{Path: "a/file", Expectation: Expectation{Entry: pathmap.Entry{LocalPath: "a/", RemotePrefix: "r1"}, Found: true}},
		{Path: "a/b/file", Expectation: Expectation{Entry: pathmap.Entry{LocalPath: "a/", RemotePrefix: "r1"}, Found: true}},
		{Path: "a/b/c/d/file", Expectation: Expectation{Entry: pathmap.Entry{LocalPath: "a/b/c/", RemotePrefix: "r2"}, Found: true}},
		{Path: "ab/file", Expectation: Expectation{}},
		{Path: "file", Expectation: Expectation{}},
		{Path: "", Expectation: Expectation{}},
	}
	for _, test := range tests {
		t.Run(test.Path, func(t *testing.T) {
			var act Expectation
			act.Entry, act.Found = m.Nearest(test.Path)
			if diff := cmp.Diff(test.Expectation, act); diff != "" {
				t.Errorf("Nearest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEntriesOrdered(t *testing.T) {
	m := newTestMap("/b/", "2", "/a/b/", "1", "/a/", "0", "/a-/", "3")

	var act []string
	for _, e := range m.Entries() {
		act = append(act, e.LocalPath)
	}
	exp := []string{"/a-/", "/a/", "/a/b/", "/b/"}
	if diff := cmp.Diff(exp, act); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentAccess(t *testing.T) {
	const (
		writers = 8
		perW    = 200
	)
	m := pathmap.New()

	var (
		wg   sync.WaitGroup
		done = make(chan struct{})
		torn = make(chan pathmap.Entry, 1)
	)
	check := func(e pathmap.Entry) {
		if e.RemotePrefix != "remote"+e.LocalPath {
			select {
			case torn <- e:
			default:
			}
		}
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, e := range m.Subtree("/w") {
					check(e)
				}
				if e, ok := m.Nearest("/w3/7/file"); ok {
					check(e)
				}
			}
		}()
	}

	var writersWg sync.WaitGroup
	for w := 0; w < writers; w++ {
		writersWg.Add(1)
		go func(w int) {
			defer writersWg.Done()
			for i := 0; i < perW; i++ {
				p := fmt.Sprintf("/w%d/%d/", w, i)
				m.Insert(p, "remote"+p)
			}
		}(w)
	}
	writersWg.Wait()
	close(done)
	wg.Wait()

	select {
	case e := <-torn:
		t.Fatalf("observed inconsistent entry %+v", e)
	default:
	}
	if m.Len() != writers*perW {
		t.Errorf("Len() = %d, want %d", m.Len(), writers*perW)
	}
}
