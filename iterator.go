package wing

import (
	"bytes"

	"github.com/Megumi-X/wing/internal/dbformat"
	wingiter "github.com/Megumi-X/wing/internal/iterator"
	"github.com/Megumi-X/wing/internal/version"
)

// Iterator walks user keys in ascending order over a snapshot of the
// database captured when it was created. It never surfaces a tombstoned
// key or more than one version of the same user key (spec.md §8,
// "Ordering"): the underlying merge iterator yields every internal key
// unfiltered, so Iterator masks shadowed and deleted entries itself.
type Iterator struct {
	heap *wingiter.HeapIterator
	sv   *version.SuperVersion
	seq  uint64

	valid bool
	key   []byte
	value []byte
}

func newIterator(sv *version.SuperVersion, seq uint64) *Iterator {
	return &Iterator{heap: version.NewSuperVersionIterator(sv), sv: sv, seq: seq}
}

// SeekToFirst positions the iterator at the smallest visible user key.
func (it *Iterator) SeekToFirst() {
	it.heap.SeekToFirst()
	it.findNext()
}

// Seek positions the iterator at the first visible user key >= userKey.
func (it *Iterator) Seek(userKey []byte) {
	it.heap.Seek(dbformat.LookupKey(userKey, it.seq))
	it.findNext()
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.valid }

// Key returns the current entry's user key.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.value }

// Next advances to the next visible user key.
func (it *Iterator) Next() { it.findNext() }

// Close releases the snapshot this iterator holds. Further use of the
// iterator after Close is undefined.
func (it *Iterator) Close() error {
	it.sv.Unref()
	return nil
}

// findNext scans forward from the heap's current position to the next
// user key with a version visible at it.seq, skipping every entry newer
// than the snapshot, every older duplicate of a key already resolved,
// and any key whose newest visible version is a tombstone.
func (it *Iterator) findNext() {
	for it.heap.Valid() {
		k := it.heap.Key()
		if k.Seq() > it.seq {
			it.heap.Next()
			continue
		}

		userKey := append([]byte(nil), k.UserKey()...)
		typ := k.Type()
		var value []byte
		if typ == dbformat.TypeValue {
			value = append([]byte(nil), it.heap.Value()...)
		}

		it.heap.Next()
		for it.heap.Valid() && bytes.Equal(it.heap.Key().UserKey(), userKey) {
			it.heap.Next()
		}

		if typ == dbformat.TypeDeletion {
			continue
		}
		it.valid = true
		it.key = userKey
		it.value = value
		return
	}
	it.valid = false
	it.key = nil
	it.value = nil
}
