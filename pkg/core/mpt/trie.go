package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
	"github.com/nspcc-dev/neo-mpt/pkg/util/slice"
)

// Trie is an MPT trie storing all key-value pairs.
type Trie struct {
	db   *NodeDB
	root Node

	// refcount holds reference count deltas accumulated since the last
	// Flush along with the node encodings.
	refcount map[util.Uint256]*cachedNode
}

type cachedNode struct {
	bytes    []byte
	refcount int32
}

var (
	// ErrNotFound is returned when the requested trie item is missing.
	ErrNotFound = errors.New("item not found")
	// ErrMissingNode is returned when a node referenced by hash can't be
	// found in the database. It means the storage is inconsistent.
	ErrMissingNode = errors.New("missing node")
	// ErrInvalidKey is returned for empty keys and keys longer than
	// MaxKeyLength.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidValue is returned for values longer than MaxValueLength.
	ErrInvalidValue = errors.New("value is too big")
)

// NewTrie returns a new MPT trie. It accepts a MemCachedStore to decouple
// storage errors from logic errors so that all storage errors are processed
// during `store.Persist()` at the caller. A nil root means an empty trie.
func NewTrie(root Node, mode TrieMode, store *storage.MemCachedStore) *Trie {
	db, _ := NewNodeDB(store, mode, 0) // No cache, no errors.
	return NewTrieWithDB(root, db)
}

// NewTrieWithDB returns a new MPT trie over the given node database.
func NewTrieWithDB(root Node, db *NodeDB) *Trie {
	if root == nil {
		root = EmptyNode{}
	} else if h, ok := root.(*HashNode); ok && h.Hash().Equals(util.Uint256{}) {
		root = EmptyNode{}
	}
	return &Trie{
		db:       db,
		root:     root,
		refcount: make(map[util.Uint256]*cachedNode),
	}
}

// DB returns the node database used by the trie.
func (t *Trie) DB() *NodeDB {
	return t.db
}

// Root returns the current root node. It must not be modified.
func (t *Trie) Root() Node {
	return t.root
}

func checkKey(key []byte) error {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	return nil
}

// Get returns the value for the provided key in t. Hash nodes met on the
// path are resolved via the database but the trie itself is not changed.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	v, err := t.walk(toNibbles(key), nil)
	if err != nil {
		return nil, err
	}
	return slice.Copy(v), nil
}

// walk follows the path from the root and returns the value of the leaf it
// ends in. visit is called for every non-empty node on the path after it's
// resolved, including the last one that doesn't match the path.
func (t *Trie) walk(path []byte, visit func(Node)) ([]byte, error) {
	var curr = t.root
	for {
		switch n := curr.(type) {
		case EmptyNode:
			return nil, ErrNotFound
		case *HashNode:
			r, err := t.getFromStore(n.Hash())
			if err != nil {
				return nil, err
			}
			curr = r
			continue
		}
		if visit != nil {
			visit(curr)
		}
		switch n := curr.(type) {
		case *LeafNode:
			if len(path) != 0 {
				return nil, ErrNotFound
			}
			if n.value == nil {
				return []byte{}, nil
			}
			return n.value, nil
		case *BranchNode:
			var i byte
			i, path = splitPath(path)
			curr = n.Children[i]
		case *ExtensionNode:
			if !bytes.HasPrefix(path, n.key) {
				return nil, ErrNotFound
			}
			path = path[len(n.key):]
			curr = n.next
		default:
			panic("invalid MPT node type")
		}
	}
}

// mutation collects the reference count changes of a single Put or Delete.
// They're applied to the trie only if the operation succeeds.
type mutation struct {
	t    *Trie
	refs map[util.Uint256]*cachedNode
	prev []byte
}

func (t *Trie) newMutation() *mutation {
	return &mutation{
		t:    t,
		refs: make(map[util.Uint256]*cachedNode),
	}
}

func (m *mutation) addRef(n Node) {
	m.updateRef(n, 1)
}

func (m *mutation) removeRef(n Node) {
	m.updateRef(n, -1)
}

func (m *mutation) updateRef(n Node, delta int32) {
	switch n.Type() {
	case HashT, EmptyT:
		panic(fmt.Sprintf("can't reference %s node", n.Type()))
	}
	h := n.Hash()
	c, ok := m.refs[h]
	if !ok {
		c = &cachedNode{bytes: n.Bytes()}
		m.refs[h] = c
	}
	c.refcount += delta
}

// commit moves the collected changes to the trie and makes root its new
// root node.
func (m *mutation) commit(root Node) {
	for h, c := range m.refs {
		if c.refcount == 0 {
			continue
		}
		if old, ok := m.t.refcount[h]; ok {
			old.refcount += c.refcount
			continue
		}
		m.t.refcount[h] = c
	}
	m.t.root = root
}

// Put puts the key-value pair in t and returns the previous value for the
// key if there was any. An empty value is a legal value, use Delete to
// remove the key. On error the trie stays unchanged.
func (t *Trie) Put(key, value []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if len(value) > MaxValueLength {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidValue, len(value))
	}
	var (
		m    = t.newMutation()
		path = toNibbles(key)
		n    = NewLeafNode(slice.Copy(value))
	)
	if n.value == nil {
		n.value = []byte{}
	}
	r, err := m.putIntoNode(t.root, path, n)
	if err != nil {
		return nil, err
	}
	m.commit(r)
	return m.prev, nil
}

func (m *mutation) putIntoNode(curr Node, path []byte, val *LeafNode) (Node, error) {
	switch n := curr.(type) {
	case *LeafNode:
		return m.putIntoLeaf(n, path, val), nil
	case *BranchNode:
		return m.putIntoBranch(n, path, val)
	case *ExtensionNode:
		return m.putIntoExtension(n, path, val)
	case *HashNode:
		r, err := m.t.getFromStore(n.Hash())
		if err != nil {
			return nil, err
		}
		return m.putIntoNode(r, path, val)
	case EmptyNode:
		return m.newSubTrie(path, val, true), nil
	default:
		panic("invalid MPT node type")
	}
}

// putIntoLeaf puts val to the trie if the current node is a Leaf.
// It returns the node replacing curr.
func (m *mutation) putIntoLeaf(curr *LeafNode, path []byte, val *LeafNode) Node {
	if len(path) == 0 {
		m.prev = append([]byte{}, curr.value...)
		m.removeRef(curr)
		m.addRef(val)
		return val
	}
	b := NewBranchNode()
	b.Children[path[0]] = m.newSubTrie(path[1:], val, true)
	b.Children[lastChild] = curr
	m.addRef(b)
	return b
}

// putIntoBranch puts val to the trie if the current node is a Branch.
// It returns the node replacing curr.
func (m *mutation) putIntoBranch(curr *BranchNode, path []byte, val *LeafNode) (Node, error) {
	i, path := splitPath(path)
	r, err := m.putIntoNode(curr.Children[i], path, val)
	if err != nil {
		return nil, err
	}
	m.removeRef(curr)
	b := curr.Clone().(*BranchNode)
	b.Children[i] = r
	b.invalidateCache()
	m.addRef(b)
	return b, nil
}

// putIntoExtension puts val to the trie if the current node is an Extension.
// It returns the node replacing curr.
func (m *mutation) putIntoExtension(curr *ExtensionNode, path []byte, val *LeafNode) (Node, error) {
	if bytes.HasPrefix(path, curr.key) {
		r, err := m.putIntoNode(curr.next, path[len(curr.key):], val)
		if err != nil {
			return nil, err
		}
		m.removeRef(curr)
		e := curr.Clone().(*ExtensionNode)
		e.next = r
		e.invalidateCache()
		m.addRef(e)
		return e, nil
	}

	m.removeRef(curr)
	pref := lcp(curr.key, path)
	lp := len(pref)
	keyTail := curr.key[lp:]
	pathTail := path[lp:]

	b := NewBranchNode()
	b.Children[keyTail[0]] = m.newSubTrie(keyTail[1:], curr.next, false)

	i, pathTail := splitPath(pathTail)
	b.Children[i] = m.newSubTrie(pathTail, val, true)
	m.addRef(b)

	if lp > 0 {
		e := NewExtensionNode(copySlice(pref), b)
		m.addRef(e)
		return e, nil
	}
	return b, nil
}

// newSubTrie creates a new subtrie containing val at the provided path.
// newVal tells whether val is a new node that needs to be referenced.
func (m *mutation) newSubTrie(path []byte, val Node, newVal bool) Node {
	if newVal {
		m.addRef(val)
	}
	if len(path) == 0 {
		return val
	}
	e := NewExtensionNode(copySlice(path), val)
	m.addRef(e)
	return e
}

// Delete removes the key from the trie. It returns false if there was no
// such key, the trie is not changed then.
func (t *Trie) Delete(key []byte) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	m := t.newMutation()
	r, ok, err := m.deleteFromNode(t.root, toNibbles(key))
	if err != nil || !ok {
		return false, err
	}
	m.commit(r)
	return true, nil
}

func (m *mutation) deleteFromNode(curr Node, path []byte) (Node, bool, error) {
	switch n := curr.(type) {
	case *LeafNode:
		if len(path) != 0 {
			return curr, false, nil
		}
		m.prev = append([]byte{}, n.value...)
		m.removeRef(n)
		return EmptyNode{}, true, nil
	case *BranchNode:
		return m.deleteFromBranch(n, path)
	case *ExtensionNode:
		return m.deleteFromExtension(n, path)
	case *HashNode:
		r, err := m.t.getFromStore(n.Hash())
		if err != nil {
			return nil, false, err
		}
		return m.deleteFromNode(r, path)
	case EmptyNode:
		return curr, false, nil
	default:
		panic("invalid MPT node type")
	}
}

func (m *mutation) deleteFromBranch(curr *BranchNode, path []byte) (Node, bool, error) {
	i, path := splitPath(path)
	r, ok, err := m.deleteFromNode(curr.Children[i], path)
	if err != nil || !ok {
		return curr, ok, err
	}
	m.removeRef(curr)
	b := curr.Clone().(*BranchNode)
	b.Children[i] = r
	b.invalidateCache()

	count, last := b.liveChildren()
	switch {
	case count > 1:
		m.addRef(b)
		return b, true, nil
	case count == 0:
		return EmptyNode{}, true, nil
	case last == lastChild:
		// A single value left, the key ending here goes to the parent.
		return b.Children[last], true, nil
	}

	c := b.Children[last]
	if h, ok := c.(*HashNode); ok {
		c, err = m.t.getFromStore(h.Hash())
		if err != nil {
			return nil, false, err
		}
	}
	var e *ExtensionNode
	if ext, ok := c.(*ExtensionNode); ok {
		m.removeRef(ext)
		e = NewExtensionNode(slice.Concat([]byte{byte(last)}, ext.key), ext.next)
	} else {
		e = NewExtensionNode([]byte{byte(last)}, c)
	}
	m.addRef(e)
	return e, true, nil
}

func (m *mutation) deleteFromExtension(curr *ExtensionNode, path []byte) (Node, bool, error) {
	if !bytes.HasPrefix(path, curr.key) {
		return curr, false, nil
	}
	r, ok, err := m.deleteFromNode(curr.next, path[len(curr.key):])
	if err != nil || !ok {
		return curr, ok, err
	}
	m.removeRef(curr)
	var e *ExtensionNode
	switch nxt := r.(type) {
	case EmptyNode:
		return nxt, true, nil
	case *ExtensionNode:
		m.removeRef(nxt)
		e = NewExtensionNode(slice.Concat(curr.key, nxt.key), nxt.next)
	default:
		e = curr.Clone().(*ExtensionNode)
		e.next = r
		e.invalidateCache()
	}
	m.addRef(e)
	return e, true, nil
}

// StateRoot returns the root hash of t, it's the zero hash for an empty trie.
func (t *Trie) StateRoot() util.Uint256 {
	if isEmpty(t.root) {
		return util.Uint256{}
	}
	return t.root.Hash()
}

// Flush writes all pending node changes to the node database. Nothing is
// written to the persistent store until the caller persists the cached one.
// Normally, Flush should be called for every state root persisted. If an
// error is returned the cached store is in an undefined state and must be
// dropped.
func (t *Trie) Flush() error {
	for h, c := range t.refcount {
		if c.refcount == 0 {
			continue
		}
		if t.db.mode.RC() {
			if err := t.db.updateRefCount(h, c.bytes, c.refcount); err != nil {
				return fmt.Errorf("node %s: %w", h.StringLE(), err)
			}
		} else if c.refcount > 0 {
			t.db.put(h, c.bytes)
		} else {
			continue
		}
		flushedNodes.Inc()
	}
	t.refcount = make(map[util.Uint256]*cachedNode)
	return nil
}

// getFromStore returns the node with the given hash. Nodes referenced since
// the last Flush are found even if they're not yet written to the database.
func (t *Trie) getFromStore(h util.Uint256) (Node, error) {
	var data []byte
	if c, ok := t.refcount[h]; ok && c.refcount > 0 {
		data = c.bytes
	} else {
		var err error
		data, err = t.db.Get(h)
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrMissingNode, h.StringLE())
			}
			return nil, err
		}
	}
	n, err := DecodeNode(data, h)
	if err != nil {
		return nil, fmt.Errorf("corrupt node %s: %w", h.StringLE(), err)
	}
	return n, nil
}

// Collapse compresses all nodes at the given depth to hash nodes, so that
// only the top of the trie is kept in memory. The trie doesn't change
// semantically, missing nodes are loaded from the database on demand.
// Note: this function does not perform any kind of storage flushing so
// `Flush()` should be called explicitly before invoking it.
func (t *Trie) Collapse(depth int) {
	if depth < 0 {
		panic("negative depth")
	}
	t.root = collapse(depth, t.root)
}

func collapse(depth int, node Node) Node {
	switch node.(type) {
	case *HashNode, EmptyNode:
		return node
	}
	if depth == 0 {
		return NewHashNode(node.Hash())
	}

	switch n := node.(type) {
	case *BranchNode:
		b := n.Clone().(*BranchNode)
		for i := range b.Children {
			b.Children[i] = collapse(depth-1, b.Children[i])
		}
		return b
	case *ExtensionNode:
		e := n.Clone().(*ExtensionNode)
		e.next = collapse(depth-1, e.next)
		return e
	case *LeafNode:
		return n
	default:
		panic("invalid MPT node type")
	}
}
