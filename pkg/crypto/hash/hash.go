/*
Package hash contains the hash functions used to identify trie nodes.
*/
package hash

import (
	"crypto/sha256"

	"github.com/nspcc-dev/neo-mpt/pkg/util"
)

// Sha256 hashes the incoming byte slice using the sha256 algorithm.
func Sha256(data []byte) util.Uint256 {
	return sha256.Sum256(data)
}

// DoubleSha256 performs sha256 twice on the given data.
func DoubleSha256(data []byte) util.Uint256 {
	h1 := Sha256(data)
	return Sha256(h1[:])
}
