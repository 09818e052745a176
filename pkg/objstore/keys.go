package objstore

import "sync"

// Keys holds the key generator of a store. Adapters embed it to implement KeyGeneratorSetter.
type Keys struct {
	mu  sync.RWMutex
	gen KeyGenerator
}

// SetKeyGenerator implements KeyGeneratorSetter
func (k *Keys) SetKeyGenerator(gen KeyGenerator) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.gen = gen
}

// ObjectKey returns the key for a local path. Without a generator the path is
// appended to the common prefix unchanged.
func (k *Keys) ObjectKey(commonPrefix, path string) string {
	k.mu.RLock()
	gen := k.gen
	k.mu.RUnlock()

	if gen == nil {
		return commonPrefix + path
	}
	return gen.GenerateObjectKey(path)
}
