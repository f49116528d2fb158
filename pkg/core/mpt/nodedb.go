package mpt

import (
	"encoding/binary"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
)

// TrieMode is the storage mode of the trie, it affects the node encoding
// in the database and the node lifetime.
type TrieMode byte

// TrieMode is a bit field, so these modes can be combined.
const (
	// ModeAll is used to store everything. Nodes are never deleted, so any
	// root that was ever flushed stays accessible.
	ModeAll TrieMode = 0
	// ModeLatest is used to only store the latest root. Every node is
	// stored with a reference counter and deleted when it drops to zero.
	ModeLatest TrieMode = 0x01
)

// refCountSize is the size of the reference counter stored after the node
// in ModeLatest.
const refCountSize = 4

// RC returns true when reference counting is enabled.
func (m TrieMode) RC() bool {
	return m&ModeLatest != 0
}

// String implements fmt.Stringer.
func (m TrieMode) String() string {
	if m.RC() {
		return "latest"
	}
	return "all"
}

// NodeDB maps node hashes to their canonical encodings. It's a thin layer
// over the cached store provided by the owner, nothing is written to the
// persistent store until the owner persists the cached one.
type NodeDB struct {
	store *storage.MemCachedStore
	mode  TrieMode
	cache *lru.Cache
}

// NewNodeDB creates a NodeDB over the store. cacheSize is the number of
// decoded node encodings kept in memory, zero disables the cache.
func NewNodeDB(store *storage.MemCachedStore, mode TrieMode, cacheSize int) (*NodeDB, error) {
	db := &NodeDB{
		store: store,
		mode:  mode,
	}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("can't create node cache: %w", err)
		}
		db.cache = c
	}
	return db, nil
}

// Mode returns the trie mode used for this database.
func (db *NodeDB) Mode() TrieMode {
	return db.mode
}

// Store returns the underlying cached store.
func (db *NodeDB) Store() *storage.MemCachedStore {
	return db.store
}

// Get returns the canonical encoding of the node with the given hash.
// storage.ErrKeyNotFound is returned for unknown nodes.
func (db *NodeDB) Get(h util.Uint256) ([]byte, error) {
	if db.cache != nil {
		if v, ok := db.cache.Get(h); ok {
			nodeCacheHits.Inc()
			return v.([]byte), nil
		}
		nodeCacheMisses.Inc()
	}
	data, err := db.store.Get(makeStorageKey(h))
	if err != nil {
		return nil, err
	}
	if db.mode.RC() {
		if len(data) < refCountSize {
			return nil, fmt.Errorf("node %s: %w", h.StringLE(), errShortNode)
		}
		data = data[:len(data)-refCountSize]
	}
	if db.cache != nil {
		db.cache.Add(h, data)
	}
	return data, nil
}

var errShortNode = errors.New("stored node is too short")

// Put stores the node encoding, it's only used in ModeAll.
func (db *NodeDB) put(h util.Uint256, bs []byte) {
	db.store.Put(makeStorageKey(h), bs)
	if db.cache != nil {
		db.cache.Add(h, bs)
	}
}

// updateRefCount adds delta to the reference counter of the node. Nodes
// with non-positive counters are deleted.
func (db *NodeDB) updateRefCount(h util.Uint256, bs []byte, delta int32) error {
	var (
		key = makeStorageKey(h)
		cnt int32
	)
	data, err := db.store.Get(key)
	switch {
	case err == nil:
		if len(data) < refCountSize {
			return fmt.Errorf("node %s: %w", h.StringLE(), errShortNode)
		}
		cnt = int32(binary.LittleEndian.Uint32(data[len(data)-refCountSize:]))
	case errors.Is(err, storage.ErrKeyNotFound):
	default:
		return err
	}
	cnt += delta
	if cnt <= 0 {
		db.store.Delete(key)
		if db.cache != nil {
			db.cache.Remove(h)
		}
		return nil
	}
	buf := make([]byte, len(bs)+refCountSize)
	copy(buf, bs)
	binary.LittleEndian.PutUint32(buf[len(bs):], uint32(cnt))
	db.store.Put(key, buf)
	return nil
}

// refCount returns the stored reference counter of the node, it's zero for
// the nodes not stored and for ModeAll.
func (db *NodeDB) refCount(h util.Uint256) (int32, error) {
	if !db.mode.RC() {
		return 0, nil
	}
	data, err := db.store.Get(makeStorageKey(h))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) < refCountSize {
		return 0, fmt.Errorf("node %s: %w", h.StringLE(), errShortNode)
	}
	return int32(binary.LittleEndian.Uint32(data[len(data)-refCountSize:])), nil
}
