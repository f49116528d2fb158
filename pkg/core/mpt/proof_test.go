package mpt

import (
	"testing"

	"github.com/nspcc-dev/neo-mpt/internal/random"
	"github.com/nspcc-dev/neo-mpt/internal/testserdes"
	"github.com/nspcc-dev/neo-mpt/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestTrie_GetProof(t *testing.T) {
	tr, r := newFixtureTrie(t)
	b := r.(*ExtensionNode).next

	t.Run("Value", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "ac01"))
		require.NoError(t, err)
		require.Equal(t, 4, len(proof))
		require.Equal(t, r.Bytes(), proof[0])
		require.Equal(t, b.Bytes(), proof[1])
		require.Equal(t, NewLeafNode(hexBytes(t, "abcd")).Bytes(), proof[3])
	})
	t.Run("BranchValue", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "ac"))
		require.NoError(t, err)
		require.Equal(t, 3, len(proof))
	})
	t.Run("ThroughHashNode", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "acae"))
		require.NoError(t, err)
		require.Equal(t, 4, len(proof))
		require.Equal(t, NewLeafNode([]byte("existing")).Bytes(), proof[3])
	})
	t.Run("Absent", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "ac10"))
		require.ErrorIs(t, err, ErrNotFound)
		require.Equal(t, 2, len(proof))

		proof, err = tr.GetProof(hexBytes(t, "ac0100"))
		require.ErrorIs(t, err, ErrNotFound)
		require.Equal(t, 4, len(proof))
	})
	t.Run("MissingNode", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "acf1"))
		require.ErrorIs(t, err, ErrMissingNode)
		require.Nil(t, proof)
	})
	t.Run("InvalidKey", func(t *testing.T) {
		_, err := tr.GetProof(nil)
		require.ErrorIs(t, err, ErrInvalidKey)
	})
	t.Run("EmptyTrie", func(t *testing.T) {
		tr := NewTrie(nil, ModeAll, newTestStore())
		proof, err := tr.GetProof([]byte{1})
		require.ErrorIs(t, err, ErrNotFound)
		require.Equal(t, 0, len(proof))
	})
}

func TestVerifyProof(t *testing.T) {
	tr, r := newFixtureTrie(t)
	root := r.Hash()

	t.Run("Good", func(t *testing.T) {
		for k, v := range map[string][]byte{
			"ac01": hexBytes(t, "abcd"),
			"ac":   hexBytes(t, "2222"),
			"acae": []byte("existing"),
		} {
			proof, err := tr.GetProof(hexBytes(t, k))
			require.NoError(t, err)
			res, err := VerifyProof(root, hexBytes(t, k), proof)
			require.NoError(t, err, k)
			require.Equal(t, v, res)
		}
	})
	t.Run("Absence", func(t *testing.T) {
		for _, k := range []string{"ac10", "ac0100", "ab"} {
			proof, err := tr.GetProof(hexBytes(t, k))
			require.ErrorIs(t, err, ErrNotFound)
			_, err = VerifyProof(root, hexBytes(t, k), proof)
			require.ErrorIs(t, err, ErrNotFound, k)
		}
	})
	t.Run("WrongRoot", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "ac01"))
		require.NoError(t, err)
		_, err = VerifyProof(random.Uint256(), hexBytes(t, "ac01"), proof)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
	t.Run("ZeroRoot", func(t *testing.T) {
		_, err := VerifyProof(util.Uint256{}, hexBytes(t, "ac01"), nil)
		require.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("Truncated", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "ac01"))
		require.NoError(t, err)
		_, err = VerifyProof(root, hexBytes(t, "ac01"), proof[:3])
		require.ErrorIs(t, err, ErrInvalidProof)
		_, err = VerifyProof(root, hexBytes(t, "ac01"), nil)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
	t.Run("Tampered", func(t *testing.T) {
		proof, err := tr.GetProof(hexBytes(t, "ac01"))
		require.NoError(t, err)
		proof[3] = NewLeafNode(hexBytes(t, "abce")).Bytes()
		_, err = VerifyProof(root, hexBytes(t, "ac01"), proof)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
	t.Run("Undecodable", func(t *testing.T) {
		// The node is reachable by its hash but can't be decoded.
		bad := []byte{0x07, 0x01}
		b := NewBranchNode()
		b.Children[1] = NewHashNode(hash.DoubleSha256(bad))
		b.Children[2] = NewLeafNode([]byte{2})
		proof := [][]byte{b.Bytes(), bad}
		_, err := VerifyProof(b.Hash(), []byte{0x10}, proof)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
	t.Run("InvalidKey", func(t *testing.T) {
		_, err := VerifyProof(root, nil, nil)
		require.ErrorIs(t, err, ErrInvalidKey)
	})
	t.Run("Random", func(t *testing.T) {
		tr := NewTrie(nil, ModeLatest, newTestStore())
		m := randomPairs(100)
		for k, v := range m {
			_, err := tr.Put([]byte(k), v)
			require.NoError(t, err)
		}
		for k, v := range m {
			proof, err := tr.GetProof([]byte(k))
			require.NoError(t, err)
			res, err := VerifyProof(tr.StateRoot(), []byte(k), proof)
			require.NoError(t, err)
			require.Equal(t, v, res)
		}
	})
}

func TestProofWithKey(t *testing.T) {
	tr, _ := newFixtureTrie(t)
	key := hexBytes(t, "ac01")
	proof, err := tr.GetProof(key)
	require.NoError(t, err)

	p := &ProofWithKey{Key: key, Proof: proof}
	testserdes.EncodeDecodeBinary(t, p, new(ProofWithKey))
	testserdes.MarshalUnmarshalJSON(t, p, new(ProofWithKey))

	var actual ProofWithKey
	require.NoError(t, actual.FromString(p.String()))
	require.Equal(t, p, &actual)

	t.Run("Invalid", func(t *testing.T) {
		var p ProofWithKey
		require.Error(t, p.FromString("not base64!"))
		require.Error(t, p.FromString(""))
		require.Error(t, p.UnmarshalJSON([]byte(`123`)))

		// Too many nodes.
		bad := append([]byte{0x01, 0xac, 0xfd}, 0xff, 0xff)
		require.Error(t, testserdes.DecodeBinary(bad, &p))
	})
}
