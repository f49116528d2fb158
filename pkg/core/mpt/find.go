package mpt

import (
	"bytes"
	"fmt"

	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/util/slice"
)

// Find returns the entries whose keys start with prefix in ascending key
// order. If from is not empty, only keys strictly greater than from are
// returned, it must start with prefix then. max limits the number of
// returned entries, zero or negative value means no limit.
func (t *Trie) Find(prefix, from []byte, max int) ([]storage.KeyValue, error) {
	if len(prefix) > MaxKeyLength || len(from) > MaxKeyLength {
		return nil, fmt.Errorf("%w: prefix or start key is too long", ErrInvalidKey)
	}
	if len(from) != 0 && !bytes.HasPrefix(from, prefix) {
		return nil, fmt.Errorf("%w: start key doesn't match prefix", ErrInvalidKey)
	}
	start, path, err := t.seek(t.root, toNibbles(prefix))
	if err != nil || start == nil {
		return nil, err
	}

	var (
		fromPath = toNibbles(from)
		offset   int
	)
	if len(fromPath) != 0 {
		for i := 0; i < len(fromPath) && i < len(path); i++ {
			if path[i] < fromPath[i] {
				return nil, nil
			}
			if path[i] > fromPath[i] {
				offset = len(fromPath)
				break
			}
		}
		if offset == 0 {
			offset = len(path)
			if len(fromPath) < offset {
				offset = len(fromPath)
			}
		}
	}

	var res []storage.KeyValue
	_, err = t.traverse(start, path, fromPath, offset, func(path, value []byte) (bool, error) {
		key, err := fromNibbles(path)
		if err != nil {
			return true, err
		}
		res = append(res, storage.KeyValue{Key: key, Value: slice.Copy(value)})
		return max > 0 && len(res) >= max, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// seek returns the topmost node of the subtrie holding all keys starting with
// path together with the full path to this node. The node is nil if there
// are no such keys.
func (t *Trie) seek(curr Node, path []byte) (Node, []byte, error) {
	switch n := curr.(type) {
	case *LeafNode:
		if len(path) == 0 {
			return n, []byte{}, nil
		}
	case *BranchNode:
		if len(path) == 0 {
			return n, []byte{}, nil
		}
		start, rest, err := t.seek(n.Children[path[0]], path[1:])
		if err != nil || start == nil {
			return nil, nil, err
		}
		return start, slice.Concat(path[:1], rest), nil
	case *ExtensionNode:
		if len(path) == 0 {
			return n.next, copySlice(n.key), nil
		}
		if bytes.HasPrefix(path, n.key) {
			start, rest, err := t.seek(n.next, path[len(n.key):])
			if err != nil || start == nil {
				return nil, nil, err
			}
			return start, slice.Concat(n.key, rest), nil
		}
		if bytes.HasPrefix(n.key, path) {
			return n.next, copySlice(n.key), nil
		}
	case *HashNode:
		r, err := t.getFromStore(n.Hash())
		if err != nil {
			return nil, nil, err
		}
		return t.seek(r, path)
	case EmptyNode:
	default:
		panic("invalid MPT node type")
	}
	return nil, nil, nil
}

// traverse calls f for every leaf of the subtrie rooted at curr in key
// order. path is the full path to curr, leaves with paths not greater than
// from are skipped, from[:offset] is already matched. The iteration stops
// when f returns true or an error.
func (t *Trie) traverse(curr Node, path, from []byte, offset int, f func(path, value []byte) (bool, error)) (bool, error) {
	switch n := curr.(type) {
	case *LeafNode:
		if len(from) <= offset && !bytes.Equal(path, from) {
			return f(path, n.value)
		}
	case *BranchNode:
		if offset < len(from) {
			for i := 0; i < lastChild; i++ {
				var next int
				switch {
				case byte(i) > from[offset]:
					next = len(from)
				case byte(i) == from[offset]:
					next = offset + 1
				default:
					continue
				}
				stop, err := t.traverse(n.Children[i], slice.Concat(path, []byte{byte(i)}), from, next, f)
				if stop || err != nil {
					return stop, err
				}
			}
			return false, nil
		}
		stop, err := t.traverse(n.Children[lastChild], path, from, offset, f)
		if stop || err != nil {
			return stop, err
		}
		for i := 0; i < lastChild; i++ {
			stop, err := t.traverse(n.Children[i], slice.Concat(path, []byte{byte(i)}), from, offset, f)
			if stop || err != nil {
				return stop, err
			}
		}
	case *ExtensionNode:
		switch {
		case offset < len(from) && bytes.HasPrefix(from[offset:], n.key):
			return t.traverse(n.next, slice.Concat(path, n.key), from, offset+len(n.key), f)
		case len(from) <= offset || bytes.Compare(n.key, from[offset:]) > 0:
			return t.traverse(n.next, slice.Concat(path, n.key), from, len(from), f)
		}
	case *HashNode:
		r, err := t.getFromStore(n.Hash())
		if err != nil {
			return true, err
		}
		return t.traverse(r, path, from, offset, f)
	case EmptyNode:
	default:
		panic("invalid MPT node type")
	}
	return false, nil
}
