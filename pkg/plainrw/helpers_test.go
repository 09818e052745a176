package plainrw_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/csweichel/plainrw/pkg/objstore"
	"github.com/csweichel/plainrw/pkg/objstore/blobstore"
	"gocloud.dev/blob/memblob"
)

// prepareTestStore creates a store with a prefix marker for every remote prefix in markers
// and an object for every key in files.
func prepareTestStore(t *testing.T, markers map[string]string, files ...string) *blobstore.Store {
	s := blobstore.New(memblob.OpenBucket(nil), blobstore.Options{Prefix: "data/"})
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	for remote, local := range markers {
		err := s.Write(ctx, remote+"/prefix.path", []byte(local))
		if err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		err := s.Write(ctx, f, []byte("content of "+f))
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}

// faultyStore fails reads of selected keys, optionally after delay
type faultyStore struct {
	objstore.Store

	mu       sync.Mutex
	failures map[string]error
	delay    time.Duration
	reads    int
	iterates int
	writable bool

	inflight    int
	maxInflight int
}

func (s *faultyStore) IsWriteOnce() bool {
	return !s.writable
}

func (s *faultyStore) Iterate(ctx context.Context, prefix string, fn func(objstore.Object) error) error {
	s.mu.Lock()
	s.iterates++
	s.mu.Unlock()
	return s.Store.Iterate(ctx, prefix, fn)
}

func (s *faultyStore) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.reads++
	s.inflight++
	if s.inflight > s.maxInflight {
		s.maxInflight = s.inflight
	}
	err := s.failures[key]
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	if err != nil {
		time.Sleep(s.delay)
		return nil, err
	}
	return s.Store.Read(ctx, key)
}
