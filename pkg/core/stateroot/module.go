package stateroot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nspcc-dev/neo-mpt/pkg/config"
	"github.com/nspcc-dev/neo-mpt/pkg/core/mpt"
	"github.com/nspcc-dev/neo-mpt/pkg/core/state"
	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type (
	// Module represents module for local processing of state roots. It
	// owns the trie and commits one trie version per height.
	Module struct {
		Store *storage.MemCachedStore
		cfg   config.StateRoot
		log   *zap.Logger

		// mtx serializes commits.
		mtx sync.Mutex
		mpt *mpt.Trie
		db  atomic.Pointer[mpt.NodeDB]

		currentLocal atomic.Value
		localHeight  atomic.Uint32
	}
)

var (
	// ErrModeMismatch is returned when the store was created with a
	// different KeepOnlyLatestState setting.
	ErrModeMismatch = errors.New("KeepOnlyLatestState setting mismatch")
	// ErrInvalidIndex is returned for commits not following the current
	// local height and for unavailable heights.
	ErrInvalidIndex = errors.New("invalid state index")
)

// NewModule returns new instance of stateroot module.
func NewModule(cfg config.StateRoot, log *zap.Logger, s *storage.MemCachedStore) *Module {
	if log == nil {
		log = zap.NewNop()
	}
	return &Module{
		cfg:   cfg,
		log:   log,
		Store: s,
	}
}

func (s *Module) mode() mpt.TrieMode {
	if s.cfg.KeepOnlyLatestState {
		return mpt.ModeLatest
	}
	return mpt.ModeAll
}

// GetState returns the value stored by key in the trie with the given root.
// With KeepOnlyLatestState nodes of the previous root are removed by the
// next commit, so reading it concurrently with AddMPTBatch may fail with
// mpt.ErrMissingNode.
func (s *Module) GetState(root util.Uint256, key []byte) ([]byte, error) {
	return s.trieAt(root).Get(key)
}

// GetStateProof returns proof of having key in the MPT with the specified
// root. For missing keys the proof of absence is returned along with
// mpt.ErrNotFound.
func (s *Module) GetStateProof(root util.Uint256, key []byte) ([][]byte, error) {
	return s.trieAt(root).GetProof(key)
}

// FindStates returns the key-value pairs with keys starting with prefix
// and strictly greater than from (if not empty) in the trie with the given
// root. At most max pairs are returned if max is positive.
func (s *Module) FindStates(root util.Uint256, prefix, from []byte, max int) ([]storage.KeyValue, error) {
	return s.trieAt(root).Find(prefix, from, max)
}

// trieAt returns a read-only view of the trie with the given root. It's
// never flushed, so the database is shared with the committing trie.
func (s *Module) trieAt(root util.Uint256) *mpt.Trie {
	return mpt.NewTrieWithDB(mpt.NewHashNode(root), s.db.Load())
}

// GetStateRoot returns state root for a given height.
func (s *Module) GetStateRoot(height uint32) (*state.MPTRoot, error) {
	return s.getStateRoot(makeStateRootKey(height))
}

// CurrentLocalStateRoot returns hash of the local state root.
func (s *Module) CurrentLocalStateRoot() util.Uint256 {
	return s.currentLocal.Load().(util.Uint256)
}

// CurrentLocalHeight returns height of the local state root.
func (s *Module) CurrentLocalHeight() uint32 {
	return s.localHeight.Load()
}

// Init initializes state root module at the given height. Zero height
// means an empty trie, the next commit is at height 1. Otherwise the root
// recorded for the height is loaded, with KeepOnlyLatestState only the
// latest height can be used. Changes cached in Store and not yet persisted
// are discarded.
func (s *Module) Init(height uint32) error {
	mode := s.mode()
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.mpt = nil
	s.Store.Reset()
	db, err := mpt.NewNodeDB(s.Store, mode, s.cfg.NodeCacheSize)
	if err != nil {
		return err
	}
	s.db.Store(db)
	stored, err := s.getMode()
	switch {
	case err == nil:
		if stored != mode {
			return fmt.Errorf("%w: old=%v, new=%v", ErrModeMismatch, stored.RC(), mode.RC())
		}
	case errors.Is(err, storage.ErrKeyNotFound):
		if height != 0 {
			return fmt.Errorf("no trie mode stored: %w", err)
		}
	default:
		return err
	}

	if height == 0 {
		s.putMode(mode)
		s.mpt = mpt.NewTrieWithDB(nil, db)
		s.setLocal(&state.MPTRoot{})
		s.log.Debug("state root module initialized", zap.Stringer("mode", mode))
		return nil
	}

	if mode.RC() {
		latest, err := s.LoadLocalHeight()
		if err != nil {
			return err
		}
		if latest != height {
			return fmt.Errorf("%w: %d, only %d is kept", ErrInvalidIndex, height, latest)
		}
	}
	r, err := s.GetStateRoot(height)
	if err != nil {
		return fmt.Errorf("can't get state root at %d: %w", height, err)
	}
	s.mpt = mpt.NewTrieWithDB(mpt.NewHashNode(r.Root), db)
	s.setLocal(r)
	s.log.Debug("state root module initialized",
		zap.Stringer("mode", mode),
		zap.Uint32("height", r.Index),
		zap.Stringer("root", r.Root))
	return nil
}

func (s *Module) setLocal(r *state.MPTRoot) {
	s.currentLocal.Store(r.Root)
	s.localHeight.Store(r.Index)
	updateStateHeightMetric(r.Index)
}

// AddMPTBatch applies the batch on top of the current local state and
// commits the resulting root as the state at index, which must follow the
// current local height. Changes are persisted atomically, nothing is
// written if any of the batch changes can't be applied or the changes can't
// be stored. The module stays at the previous height then.
func (s *Module) AddMPTBatch(index uint32, b mpt.Batch) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.mpt == nil {
		return errors.New("state root module is not initialized")
	}
	if cur := s.localHeight.Load(); index != cur+1 {
		return fmt.Errorf("%w: %d, expected %d", ErrInvalidIndex, index, cur+1)
	}
	if n, err := s.mpt.PutBatch(b); err != nil {
		s.mpt = mpt.NewTrieWithDB(mpt.NewHashNode(s.CurrentLocalStateRoot()), s.db.Load())
		return fmt.Errorf("failed to apply change %d of %d: %w", n, b.Len(), err)
	}
	if err := s.mpt.Flush(); err != nil {
		s.rollback()
		return fmt.Errorf("failed to flush state at %d: %w", index, err)
	}
	sr := &state.MPTRoot{
		Index: index,
		Root:  s.mpt.StateRoot(),
	}
	s.addLocalStateRoot(sr)
	cnt, err := s.Store.Persist()
	if err != nil {
		s.rollback()
		return fmt.Errorf("failed to persist state at %d: %w", index, err)
	}
	s.mpt.Collapse(s.cfg.CollapseDepth)
	s.setLocal(sr)
	s.log.Debug("state root committed",
		zap.Uint32("height", index),
		zap.Stringer("root", sr.Root),
		zap.Int("changes", b.Len()),
		zap.Int("keys", cnt))
	return nil
}

// rollback drops the changes of the failed commit and restores the trie at
// the last committed root. The node cache is replaced too since it can
// contain nodes that were never persisted. It's called with mtx locked.
func (s *Module) rollback() {
	s.Store.Reset()
	db, err := mpt.NewNodeDB(s.Store, s.mode(), s.cfg.NodeCacheSize)
	if err != nil {
		s.mpt = nil
		s.log.Error("can't recreate node database", zap.Error(err))
		return
	}
	s.db.Store(db)
	s.mpt = mpt.NewTrieWithDB(mpt.NewHashNode(s.CurrentLocalStateRoot()), db)
	s.log.Warn("state changes rolled back",
		zap.Uint32("height", s.CurrentLocalHeight()),
		zap.Stringer("root", s.CurrentLocalStateRoot()))
}
