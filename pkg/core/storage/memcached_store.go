package storage

import (
	"bytes"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch. Deleted keys are
// kept in the cache as nil values until persisted.
type MemCachedStore struct {
	MemoryStore

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: *NewMemoryStore(),
		ps:          lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	return s.ps.Get(key)
}

// Put puts new KV pair into the store. Value is copied.
func (s *MemCachedStore) Put(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	s.mut.Lock()
	s.mem[string(key)] = v
	s.mut.Unlock()
}

// Delete marks a key as deleted, it's removed from the lower store on Persist.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface, the changes are cached
// until Persist.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		s.mem[k] = v
	}
	s.mut.Unlock()
	return nil
}

// Len returns the number of cached changes, deletions included.
func (s *MemCachedStore) Len() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return len(s.mem)
}

// Seek implements the Store interface. Cached changes take priority over
// the lower store contents.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	memList := s.collect(rng, true)
	s.mut.RUnlock()

	var (
		i    int
		stop bool
	)
	s.ps.Seek(rng, func(k, v []byte) bool {
		for ; i < len(memList); i++ {
			c := bytes.Compare(memList[i].Key, k)
			if c > 0 {
				break
			}
			kv := memList[i]
			if kv.Value != nil && !f(kv.Key, kv.Value) {
				stop = true
				return false
			}
			if c == 0 {
				// Overridden or deleted in the cache.
				i++
				return true
			}
		}
		if !f(k, v) {
			stop = true
			return false
		}
		return true
	})
	if stop {
		return
	}
	for ; i < len(memList); i++ {
		if memList[i].Value != nil && !f(memList[i].Key, memList[i].Value) {
			return
		}
	}
}

// Persist flushes all the cached contents into the lower store ps. The
// changes are pushed in a single PutChangeSet call. It returns the number of
// keys flushed.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	keys := len(s.mem)
	if keys == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(s.mem)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return keys, nil
}

// Reset drops all the cached changes, the lower store is not touched.
func (s *MemCachedStore) Reset() {
	s.mut.Lock()
	s.mem = make(map[string][]byte)
	s.mut.Unlock()
}

// Close implements Store interface, clears up memory and closes the lower layer
// Store.
func (s *MemCachedStore) Close() error {
	// It's always successful.
	_ = s.MemoryStore.Close()
	return s.ps.Close()
}
