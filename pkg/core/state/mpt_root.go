package state

import (
	"github.com/nspcc-dev/neo-mpt/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-mpt/pkg/io"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
)

// MPTRoot represents the state root committed at some height.
type MPTRoot struct {
	Version byte         `json:"version"`
	Index   uint32       `json:"index"`
	Root    util.Uint256 `json:"roothash"`
}

// Hash returns hash of s.
func (s *MPTRoot) Hash() util.Uint256 {
	buf := io.NewBufBinWriter()
	s.EncodeBinary(buf.BinWriter)
	return hash.DoubleSha256(buf.Bytes())
}

// DecodeBinary implements io.Serializable.
func (s *MPTRoot) DecodeBinary(r *io.BinReader) {
	s.Version = r.ReadB()
	s.Index = r.ReadU32LE()
	r.ReadBytes(s.Root[:])
}

// EncodeBinary implements io.Serializable.
func (s *MPTRoot) EncodeBinary(w *io.BinWriter) {
	w.WriteB(s.Version)
	w.WriteU32LE(s.Index)
	w.WriteBytes(s.Root[:])
}
