package stateroot

import (
	"encoding/binary"
	"fmt"

	"github.com/nspcc-dev/neo-mpt/pkg/core/mpt"
	"github.com/nspcc-dev/neo-mpt/pkg/core/state"
	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/io"
)

const (
	prefixLocal = 0x02
)

var (
	localKey = []byte{byte(storage.DataMPTAux), prefixLocal}
	modeKey  = []byte{byte(storage.SYSVersion)}
)

func (s *Module) addLocalStateRoot(sr *state.MPTRoot) {
	key := makeStateRootKey(sr.Index)
	putStateRoot(s.Store, key, sr)

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, sr.Index)
	s.Store.Put(localKey, data)
}

func putStateRoot(store *storage.MemCachedStore, key []byte, sr *state.MPTRoot) {
	w := io.NewBufBinWriter()
	sr.EncodeBinary(w.BinWriter)
	store.Put(key, w.Bytes())
}

func (s *Module) getStateRoot(key []byte) (*state.MPTRoot, error) {
	data, err := s.Store.Get(key)
	if err != nil {
		return nil, err
	}

	sr := &state.MPTRoot{}
	r := io.NewBinReaderFromBuf(data)
	sr.DecodeBinary(r)
	return sr, r.Err
}

// LoadLocalHeight returns the latest committed height stored in the
// database, storage.ErrKeyNotFound is returned if nothing was committed.
func (s *Module) LoadLocalHeight() (uint32, error) {
	data, err := s.Store.Get(localKey)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("invalid local height: %x", data)
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (s *Module) getMode() (mpt.TrieMode, error) {
	data, err := s.Store.Get(modeKey)
	if err != nil {
		return 0, err
	}
	if len(data) != 1 {
		return 0, fmt.Errorf("invalid trie mode: %x", data)
	}
	return mpt.TrieMode(data[0]), nil
}

func (s *Module) putMode(m mpt.TrieMode) {
	s.Store.Put(modeKey, []byte{byte(m)})
}

func makeStateRootKey(index uint32) []byte {
	key := make([]byte, 5)
	key[0] = byte(storage.DataMPTAux)
	binary.BigEndian.PutUint32(key[1:], index)
	return key
}
