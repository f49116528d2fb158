package mpt

import (
	"encoding/json"
	"errors"

	"github.com/nspcc-dev/neo-mpt/pkg/io"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
)

// EmptyNode represents an empty node, an absent subtrie.
type EmptyNode struct{}

var _ Node = EmptyNode{}

// DecodeBinary implements io.Serializable interface.
func (e EmptyNode) DecodeBinary(*io.BinReader) {
}

// EncodeBinary implements io.Serializable interface.
func (e EmptyNode) EncodeBinary(*io.BinWriter) {
}

// MarshalJSON implements Node interface.
func (e EmptyNode) MarshalJSON() ([]byte, error) {
	return []byte(`{}`), nil
}

// UnmarshalJSON implements Node interface.
func (e EmptyNode) UnmarshalJSON(bytes []byte) error {
	var m map[string]any
	err := json.Unmarshal(bytes, &m)
	if err != nil {
		return err
	}
	if len(m) != 0 {
		return errors.New("expected empty node")
	}
	return nil
}

// Hash implements Node interface. The empty subtrie is identified by
// the zero hash.
func (e EmptyNode) Hash() util.Uint256 {
	return util.Uint256{}
}

// Type implements Node interface.
func (e EmptyNode) Type() NodeType {
	return EmptyT
}

// Bytes implements Node interface.
func (e EmptyNode) Bytes() []byte {
	return []byte{byte(EmptyT)}
}

// Clone implements Node interface.
func (EmptyNode) Clone() Node { return EmptyNode{} }

func isEmpty(n Node) bool {
	_, ok := n.(EmptyNode)
	return ok
}
