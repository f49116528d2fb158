package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v2"
	"github.com/nspcc-dev/neo-mpt/pkg/core/storage/dbconfig"
)

// BadgerDBStore is the official storage implementation for storing and retrieving
// trie data.
type BadgerDBStore struct {
	db *badger.DB
}

// NewBadgerDBStore returns a new BadgerDBStore object that will
// initialize the database found at the given path.
func NewBadgerDBStore(cfg dbconfig.BadgerDBOptions) (*BadgerDBStore, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(nil).
		WithReadOnly(cfg.ReadOnly)
	if !cfg.ReadOnly {
		if err := os.MkdirAll(cfg.Dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create dir for BadgerDB: %w", err)
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB instance: %w", err)
	}

	return &BadgerDBStore{
		db: db,
	}, nil
}

// Get implements the Store interface.
func (b *BadgerDBStore) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		err = ErrKeyNotFound
	}
	return val, err
}

// PutChangeSet implements the Store interface.
func (b *BadgerDBStore) PutChangeSet(puts map[string][]byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var err error
		for k, v := range puts {
			if v != nil {
				err = txn.Set([]byte(k), v)
			} else {
				err = txn.Delete([]byte(k))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Seek implements the Store interface.
func (b *BadgerDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	start := make([]byte, len(rng.Prefix)+len(rng.Start))
	copy(start, rng.Prefix)
	copy(start[len(rng.Prefix):], rng.Start)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = rng.Prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(rng.Prefix); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !f(item.Key(), v) {
				break
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Close releases all db resources.
func (b *BadgerDBStore) Close() error {
	return b.db.Close()
}
