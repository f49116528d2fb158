package mpt

import (
	"bytes"
	"fmt"
	"sort"
)

// Batch is a batch of storage changes to be applied to the trie in order.
// A nil value means the key is to be deleted.
type Batch struct {
	kv []keyValue
}

type keyValue struct {
	key   []byte
	value []byte
}

// MapToMPTBatch makes a Batch from an unordered set of storage changes,
// changes are sorted by key.
func MapToMPTBatch(m map[string][]byte) Batch {
	var b Batch

	b.kv = make([]keyValue, 0, len(m))
	for k, v := range m {
		b.kv = append(b.kv, keyValue{[]byte(k), v})
	}
	sort.Slice(b.kv, func(i, j int) bool {
		return bytes.Compare(b.kv[i].key, b.kv[j].key) < 0
	})
	return b
}

// Add appends the change to the batch, nil value is a deletion.
func (b *Batch) Add(key, value []byte) {
	b.kv = append(b.kv, keyValue{key, value})
}

// Len returns the number of changes in the batch.
func (b Batch) Len() int {
	return len(b.kv)
}

// PutBatch puts the batch to the trie and returns the number of elements
// processed. Changes are applied one by one, so if an error is returned the
// trie has all the changes before the failed one applied. Deletion of a
// missing key is not an error.
func (t *Trie) PutBatch(b Batch) (int, error) {
	for i, kv := range b.kv {
		var err error
		if kv.value == nil {
			_, err = t.Delete(kv.key)
		} else {
			_, err = t.Put(kv.key, kv.value)
		}
		if err != nil {
			return i, fmt.Errorf("key %x: %w", kv.key, err)
		}
	}
	return len(b.kv), nil
}
