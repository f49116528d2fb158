package mpt

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/nspcc-dev/neo-mpt/internal/random"
	"github.com/nspcc-dev/neo-mpt/internal/testserdes"
	"github.com/nspcc-dev/neo-mpt/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-mpt/pkg/io"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestFuncEncode(ok bool, expected, actual Node) func(t *testing.T) {
	return func(t *testing.T) {
		t.Run("IO", func(t *testing.T) {
			bs, err := testserdes.EncodeBinary(expected)
			require.NoError(t, err)
			err = testserdes.DecodeBinary(bs, actual)
			if !ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, expected.Type(), actual.Type())
			require.Equal(t, expected.Hash(), actual.Hash())
			require.Equal(t, expected.Bytes(), actual.Bytes())
		})
		t.Run("JSON", func(t *testing.T) {
			bs, err := json.Marshal(expected)
			require.NoError(t, err)
			err = json.Unmarshal(bs, actual)
			if !ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, expected.Type(), actual.Type())
			require.Equal(t, expected.Hash(), actual.Hash())
		})
	}
}

func randomPath(n int) []byte {
	p := toNibbles(random.Bytes((n + 1) / 2))
	return p[:n]
}

func TestNode_Serializable(t *testing.T) {
	t.Run("Leaf", func(t *testing.T) {
		t.Run("Good", func(t *testing.T) {
			l := NewLeafNode(random.Bytes(123))
			t.Run("Raw", getTestFuncEncode(true, l, new(LeafNode)))
			t.Run("WithType", getTestFuncEncode(true, &NodeObject{l}, new(NodeObject)))
		})
		t.Run("EmptyValue", getTestFuncEncode(true, NewLeafNode([]byte{}), new(LeafNode)))
		t.Run("BigValue", getTestFuncEncode(false,
			NewLeafNode(random.Bytes(MaxValueLength+1)), new(LeafNode)))
	})

	t.Run("Extension", func(t *testing.T) {
		t.Run("Good", func(t *testing.T) {
			e := NewExtensionNode(randomPath(41), NewLeafNode(random.Bytes(10)))
			t.Run("Raw", getTestFuncEncode(true, e, new(ExtensionNode)))
			t.Run("WithType", getTestFuncEncode(true, &NodeObject{e}, new(NodeObject)))
		})
		t.Run("BigKey", getTestFuncEncode(false,
			NewExtensionNode(randomPath(maxPathLength+1), NewLeafNode(random.Bytes(10))), new(ExtensionNode)))
		t.Run("EmptyKey", getTestFuncEncode(false,
			NewExtensionNode([]byte{}, NewLeafNode(random.Bytes(10))), new(ExtensionNode)))
		t.Run("NotNibbles", getTestFuncEncode(false,
			NewExtensionNode([]byte{0x01, 0x10}, NewLeafNode(random.Bytes(10))), new(ExtensionNode)))
	})

	t.Run("Branch", func(t *testing.T) {
		b := NewBranchNode()
		b.Children[0] = NewLeafNode(random.Bytes(10))
		b.Children[lastChild] = NewHashNode(random.Uint256())
		t.Run("Raw", getTestFuncEncode(true, b, new(BranchNode)))
		t.Run("WithType", getTestFuncEncode(true, &NodeObject{b}, new(NodeObject)))
	})

	t.Run("Hash", func(t *testing.T) {
		h := NewHashNode(random.Uint256())
		t.Run("Raw", getTestFuncEncode(true, h, new(HashNode)))
		t.Run("WithType", getTestFuncEncode(true, &NodeObject{h}, new(NodeObject)))
	})

	t.Run("Empty", func(t *testing.T) {
		bs, err := testserdes.EncodeBinary(&NodeObject{EmptyNode{}})
		require.NoError(t, err)
		require.Equal(t, []byte{byte(EmptyT)}, bs)

		var n NodeObject
		require.NoError(t, testserdes.DecodeBinary(bs, &n))
		require.True(t, isEmpty(n.Node))
		require.Equal(t, util.Uint256{}, n.Hash())

		data, err := json.Marshal(EmptyNode{})
		require.NoError(t, err)
		require.Equal(t, `{}`, string(data))
		require.NoError(t, json.Unmarshal(data, &n))
		require.True(t, isEmpty(n.Node))
	})

	t.Run("InvalidType", func(t *testing.T) {
		var n NodeObject
		require.Error(t, testserdes.DecodeBinary([]byte{0x05}, &n))
	})
}

// Known N3 node encodings and hashes.
func TestNode_Encoding(t *testing.T) {
	l := NewLeafNode([]byte{0xab, 0xcd})
	require.Equal(t, "0202abcd", hex.EncodeToString(l.Bytes()))
	require.Equal(t, "4fa77603dc3a3f3cf7d98353fdbe062d2afffcae8d036db0969c6f9b119d523e", l.Hash().StringLE())

	e := NewExtensionNode([]byte{0x0a, 0x0b}, l)
	require.Equal(t, "01020a0b03"+hex.EncodeToString(l.Hash().BytesBE()), hex.EncodeToString(e.Bytes()))
	require.Equal(t, "55ec0e955b3cd1429fe344df335a918e5f962d0ced8c8dc8f6958eb08744886a", e.Hash().StringLE())

	b := NewBranchNode()
	b.Children[0] = l
	b.Children[lastChild] = NewLeafNode([]byte{})
	require.Equal(t, "571ce49b9951fe0faeece5eeb430ad1663fef2ad4165226cd649c0f73257e90f", b.Hash().StringLE())

	empty := NewLeafNode(nil)
	require.Equal(t, "0200", hex.EncodeToString(empty.Bytes()))
	require.Equal(t, "b239e71e99fe45af1a4d570b8b568fd49f5b13252acb666fce0f3e8a0948800f", empty.Hash().StringLE())
}

// Children are referenced by hash regardless of their size.
func TestNode_ChildReference(t *testing.T) {
	check := func(t *testing.T, value []byte) {
		l := NewLeafNode(value)

		w := io.NewBufBinWriter()
		w.WriteB(byte(LeafT))
		w.WriteVarBytes(value)
		leafBytes := w.Bytes()
		require.Equal(t, leafBytes, l.Bytes())

		e := NewExtensionNode([]byte{0x0a, 0x0b}, l)
		expected := append([]byte{byte(ExtensionT), 0x02, 0x0a, 0x0b, byte(HashT)}, hash.DoubleSha256(leafBytes).BytesBE()...)
		require.Equal(t, expected, e.Bytes())
		require.Equal(t, hash.DoubleSha256(expected), e.Hash())
	}
	t.Run("Small", func(t *testing.T) {
		check(t, []byte{0x01})
	})
	t.Run("Big", func(t *testing.T) {
		check(t, random.Bytes(300))
	})
}

func TestDecodeNode(t *testing.T) {
	l := NewLeafNode([]byte("value"))

	t.Run("Good", func(t *testing.T) {
		n, err := DecodeNode(l.Bytes(), l.Hash())
		require.NoError(t, err)
		require.Equal(t, LeafT, n.Type())
		require.Equal(t, []byte("value"), n.(*LeafNode).Value())
		require.Equal(t, l.Hash(), n.Hash())
	})
	t.Run("TrailingData", func(t *testing.T) {
		_, err := DecodeNode(append(l.Bytes(), 0), l.Hash())
		require.Error(t, err)
	})
	t.Run("HashNode", func(t *testing.T) {
		h := NewHashNode(random.Uint256())
		_, err := DecodeNode(h.Bytes(), h.Hash())
		require.Error(t, err)
	})
	t.Run("Empty", func(t *testing.T) {
		_, err := DecodeNode([]byte{byte(EmptyT)}, util.Uint256{})
		require.Error(t, err)
	})
	t.Run("BadChild", func(t *testing.T) {
		data := []byte{byte(ExtensionT), 0x01, 0x01, byte(LeafT), 0x00}
		_, err := DecodeNode(data, hash.DoubleSha256(data))
		require.Error(t, err)
	})
}

func TestInvalidJSON(t *testing.T) {
	t.Run("InvalidChildrenCount", func(t *testing.T) {
		var cs [childrenCount + 1]Node
		for i := range cs {
			cs[i] = EmptyNode{}
		}
		data, err := json.Marshal(cs)
		require.NoError(t, err)

		var n NodeObject
		assert.Error(t, json.Unmarshal(data, &n))
	})

	testCases := []struct {
		name string
		data []byte
	}{
		{"WrongFieldCount", []byte(`{"key":"0102", "next": {}, "field": {}}`)},
		{"InvalidField1", []byte(`{"next":{}}`)},
		{"InvalidField2", []byte(`{"key":"0102", "hash":{}}`)},
		{"InvalidKey", []byte(`{"key":"xy", "next":{}}`)},
		{"EmptyKey", []byte(`{"key":"", "next":{}}`)},
		{"NotNibbles", []byte(`{"key":"1f", "next":{}}`)},
		{"InvalidNext", []byte(`{"key":"01", "next":[]}`)},
		{"InvalidHash", []byte(`{"hash":"01"}`)},
		{"InvalidValue", []byte(`{"value":1}`)},
		{"InvalidBranch", []byte(`[{"hash":"01"}]`)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var n NodeObject
			assert.Error(t, json.Unmarshal(tc.data, &n))
		})
	}
}

func TestNodeTypeString(t *testing.T) {
	require.Equal(t, "branch", BranchT.String())
	require.Equal(t, "extension", ExtensionT.String())
	require.Equal(t, "leaf", LeafT.String())
	require.Equal(t, "hash", HashT.String())
	require.Equal(t, "empty", EmptyT.String())
	require.Equal(t, "unknown(5)", NodeType(5).String())
}

func TestNode_Clone(t *testing.T) {
	l := NewLeafNode([]byte{1})
	e := NewExtensionNode([]byte{1}, l)
	h := e.Hash()

	c := e.Clone().(*ExtensionNode)
	c.next = NewLeafNode([]byte{2})
	c.invalidateCache()
	require.NotEqual(t, h, c.Hash())
	require.Equal(t, h, e.Hash())
	require.Equal(t, l, e.Next())
}
