package mpt

import (
	"errors"

	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
)

// lcp returns the longest common prefix of a and b.
// Note: it does no allocations.
func lcp(a, b []byte) []byte {
	if len(a) < len(b) {
		return lcp(b, a)
	}

	var i int
	for i = 0; i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
	}

	return a[:i]
}

// copySlice is a helper for copying slice if needed.
func copySlice(a []byte) []byte {
	b := make([]byte, len(a))
	copy(b, a)
	return b
}

// toNibbles mangles the path by splitting every byte into 2 containing low- and high- 4-byte part.
func toNibbles(path []byte) []byte {
	result := make([]byte, len(path)*2)
	for i := range path {
		result[i*2] = path[i] >> 4
		result[i*2+1] = path[i] & 0x0F
	}
	return result
}

// errOddNibbles is returned on an attempt to convert a path that doesn't
// end on a byte boundary back into a key.
var errOddNibbles = errors.New("odd number of nibbles")

// fromNibbles performs an operation opposite to toNibbles and checks the
// nibbles validity.
func fromNibbles(path []byte) ([]byte, error) {
	if len(path)%2 != 0 {
		return nil, errOddNibbles
	}
	result := make([]byte, len(path)/2)
	for i := range result {
		result[i] = path[2*i]<<4 + path[2*i+1]
	}
	return result, nil
}

// isNibbles checks that every byte of the path is a valid nibble.
func isNibbles(path []byte) bool {
	for _, b := range path {
		if b > 0x0F {
			return false
		}
	}
	return true
}

// splitPath splits the path for a branch node: the first nibble selects
// the child and the rest is passed down. An empty path selects the value
// slot.
func splitPath(path []byte) (byte, []byte) {
	if len(path) != 0 {
		return path[0], path[1:]
	}
	return lastChild, path
}

// makeStorageKey returns the key used to store the node with the given hash.
func makeStorageKey(mptKey util.Uint256) []byte {
	return append([]byte{byte(storage.DataMPT)}, mptKey[:]...)
}
