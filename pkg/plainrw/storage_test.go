package plainrw_test

import (
	"context"
	"testing"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/plainrw"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordingHooks struct {
	attached []int
	detached []int
}

func (h *recordingHooks) OnAttach(size int) { h.attached = append(h.attached, size) }
func (h *recordingHooks) OnDetach(size int) { h.detached = append(h.detached, size) }

func prepareTestStorage(t *testing.T, opts ...plainrw.Option) (*plainrw.Storage, objstore.Store) {
	store := prepareTestStore(t,
		map[string]string{
			"data/aaa":     "a/",
			"data/aaa/bbb": "a/b/",
		},
		"data/top.txt",
		"data/aaa/x.txt",
		"data/aaa/bbb/y.txt",
		"data/aaa/plain/z.txt",
	)

	logger, _ := test.NewNullLogger()
	storage, err := plainrw.New(context.Background(), store, "disks/plain/", append([]plainrw.Option{plainrw.WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return storage, store
}

func TestNewRejectsWriteOnce(t *testing.T) {
	store := &faultyStore{Store: prepareTestStore(t, map[string]string{"data/aaa": "a/"})}
	hooks := &recordingHooks{}

	storage, err := plainrw.New(context.Background(), store, "", plainrw.WithHooks(hooks))
	if !errors.Is(err, objstore.ErrWriteOnce) {
		t.Fatalf("New() = %v, want %v", err, objstore.ErrWriteOnce)
	}
	if storage != nil {
		t.Error("New() returned a storage alongside an error")
	}
	if store.iterates != 0 || store.reads != 0 {
		t.Errorf("store was scanned (%d iterations, %d reads) before the compatibility check", store.iterates, store.reads)
	}
	if len(hooks.attached) != 0 {
		t.Errorf("OnAttach called %v", hooks.attached)
	}
}

func TestNewLoadFailure(t *testing.T) {
	store := &faultyStore{
		Store:    prepareTestStore(t, map[string]string{"data/aaa": "a/"}),
		writable: true,
		failures: map[string]error{"data/aaa/prefix.path": errors.New("access denied")},
	}
	hooks := &recordingHooks{}

	storage, err := plainrw.New(context.Background(), store, "", plainrw.WithHooks(hooks))
	if err == nil {
		t.Fatal("New() succeeded, want error")
	}
	if storage != nil {
		t.Error("New() returned a storage alongside an error")
	}
	if len(hooks.attached) != 0 {
		t.Errorf("OnAttach called %v", hooks.attached)
	}
}

func TestLifecycleHooks(t *testing.T) {
	hooks := &recordingHooks{}
	storage, _ := prepareTestStorage(t, plainrw.WithHooks(hooks))

	storage.KeyGenerator().GenerateDirectoryPrefix("a/new/")
	storage.Close()
	storage.Close()

	type Expectation struct {
		Attached []int
		Detached []int
	}
	exp := Expectation{Attached: []int{2}, Detached: []int{3}}
	act := Expectation{Attached: hooks.attached, Detached: hooks.detached}
	if diff := cmp.Diff(exp, act); diff != "" {
		t.Errorf("hooks mismatch (-want +got):\n%s", diff)
	}
}

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks, err := plainrw.NewPrometheusHooks(reg, "s3_plain")
	if err != nil {
		t.Fatal(err)
	}
	other, err := plainrw.NewPrometheusHooks(reg, "s3_plain")
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}

	hooks.OnAttach(5)
	other.OnAttach(2)
	if act := testutil.ToFloat64(hooks.Gauge()); act != 7 {
		t.Errorf("gauge after attach = %v, want 7", act)
	}
	hooks.OnDetach(5)
	if act := testutil.ToFloat64(hooks.Gauge()); act != 2 {
		t.Errorf("gauge after detach = %v, want 2", act)
	}
}

func TestListDirectory(t *testing.T) {
	storage, _ := prepareTestStorage(t)

	tests := []struct {
		Dir         string
		Expectation []string
	}{
		{Dir: "", Expectation: []string{"a", "top.txt"}},
		{Dir: "a/", Expectation: []string{"b", "plain", "x.txt"}},
		{Dir: "a", Expectation: []string{"b", "plain", "x.txt"}},
		{Dir: "a/b/", Expectation: []string{"y.txt"}},
		{Dir: "a/plain/", Expectation: []string{"z.txt"}},
		{Dir: "missing/", Expectation: []string{}},
	}
	for _, test := range tests {
		t.Run(test.Dir, func(t *testing.T) {
			act, err := storage.ListDirectory(context.Background(), test.Dir)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.Expectation, act); diff != "" {
				t.Errorf("ListDirectory() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStorageKeyGenerator(t *testing.T) {
	storage, store := prepareTestStorage(t)

	mapper, ok := store.(objstore.KeyMapper)
	if !ok {
		t.Fatal("store does not map keys")
	}
	for path, exp := range map[string]string{
		"a/b/y.txt":   "data/aaa/bbb/y.txt",
		"top.txt":     "data/top.txt",
		"a/new/f.txt": "data/aaa/new/f.txt",
	} {
		if act := mapper.ObjectKey(path); act != exp {
			t.Errorf("store ObjectKey(%q) = %q, want %q", path, act, exp)
		}
		if act := storage.ObjectKey(path); act != exp {
			t.Errorf("storage ObjectKey(%q) = %q, want %q", path, act, exp)
		}
	}

	if !storage.DirectoryExists("a/b") || storage.DirectoryExists("a/plain/") || !storage.DirectoryExists("") {
		t.Error("DirectoryExists() does not follow the path map")
	}
	if p, ok := storage.RemotePrefix("a/b/"); !ok || p != "data/aaa/bbb" {
		t.Errorf("RemotePrefix() = (%q, %v)", p, ok)
	}
	if storage.StoragePathPrefix() != "disks/plain/" {
		t.Errorf("StoragePathPrefix() = %q", storage.StoragePathPrefix())
	}
	if s := storage.Stats(); s.Directories != 2 || s.Markers != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}
