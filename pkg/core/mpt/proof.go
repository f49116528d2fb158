package mpt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-mpt/pkg/io"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
	"github.com/nspcc-dev/neo-mpt/pkg/util/slice"
)

// ErrInvalidProof is returned when the proof doesn't link the key to the
// root.
var ErrInvalidProof = errors.New("invalid proof")

// maxProofNodes is the maximum number of nodes on a single path: a branch
// and an extension per nibble plus the leaf.
const maxProofNodes = 2*maxPathLength + 1

// GetProof returns a proof that the key belongs to t. The proof consists of
// serialized nodes occurring on the path from the root to the leaf of the
// key. For a missing key the proof of its absence is returned along with
// ErrNotFound, it ends with the node that rules the key out.
func (t *Trie) GetProof(key []byte) ([][]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var proof [][]byte
	_, err := t.walk(toNibbles(key), func(n Node) {
		proof = append(proof, slice.Copy(n.Bytes()))
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return proof, err
}

// VerifyProof verifies that the key indeed belongs to the MPT with the
// specified root hash and returns its value. ErrNotFound is returned if the
// proof shows the key is absent, any proof that doesn't allow to reach a
// conclusion gives an error wrapping ErrInvalidProof.
func VerifyProof(rh util.Uint256, key []byte, proof [][]byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	store := storage.NewMemCachedStore(storage.NewMemoryStore())
	for i := range proof {
		h := hash.DoubleSha256(proof[i])
		store.Put(makeStorageKey(h), proof[i])
	}
	tr := NewTrie(NewHashNode(rh), ModeAll, store)
	v, err := tr.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return v, nil
}

// ProofWithKey is a key-proof pair, the form proofs are exchanged in.
type ProofWithKey struct {
	Key   []byte
	Proof [][]byte
}

// EncodeBinary implements io.Serializable.
func (p *ProofWithKey) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(p.Key)
	w.WriteVarUint(uint64(len(p.Proof)))
	for i := range p.Proof {
		w.WriteVarBytes(p.Proof[i])
	}
}

// DecodeBinary implements io.Serializable.
func (p *ProofWithKey) DecodeBinary(r *io.BinReader) {
	p.Key = r.ReadVarBytes(MaxKeyLength)
	sz := r.ReadVarUint()
	if r.Err != nil {
		return
	}
	if sz > maxProofNodes {
		r.Err = fmt.Errorf("too many proof nodes: %d", sz)
		return
	}
	p.Proof = make([][]byte, 0, sz)
	for i := uint64(0); i < sz; i++ {
		p.Proof = append(p.Proof, r.ReadVarBytes(MaxValueLength+16))
	}
}

// String returns the base64 representation of p.
func (p *ProofWithKey) String() string {
	w := io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)
	return base64.StdEncoding.EncodeToString(w.Bytes())
}

// FromString decodes p from the base64 string.
func (p *ProofWithKey) FromString(s string) error {
	rawProof, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	r := io.NewBinReaderFromBuf(rawProof)
	p.DecodeBinary(r)
	if r.Err == nil && r.Len() != 0 {
		return errors.New("trailing data after proof")
	}
	return r.Err
}

// MarshalJSON implements the json.Marshaler.
func (p *ProofWithKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements the json.Unmarshaler.
func (p *ProofWithKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return p.FromString(s)
}
