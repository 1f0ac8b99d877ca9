package block

import (
	"github.com/Megumi-X/wing/internal/dbformat"
	"github.com/Megumi-X/wing/internal/encoding"
)

// Iterator reads records out of a finished block. It operates over a
// borrowed byte buffer whose lifetime must exceed the iterator's; it
// never mutates the block.
//
// Valid is count-based (index < handle.Count), not type-based, so that
// tombstone records remain iterable — resolving spec.md §9's ambiguity
// about BlockIterator.Valid in favor of the count-based definition.
type Iterator struct {
	data    []byte
	handle  Handle
	index   uint64
	current []byte // points at the current record's start within data
}

// NewIterator creates an iterator over data, a finished block whose
// record count and byte size are given by handle.
func NewIterator(data []byte, handle Handle) *Iterator {
	return &Iterator{data: data, handle: handle}
}

// offsetsBase returns the offset, within data, of the trailing offset array.
func (it *Iterator) offsetsBase() int {
	return int(it.handle.Size) - int(it.handle.Count)*8
}

func (it *Iterator) offsetAt(i uint64) uint64 {
	base := it.offsetsBase() + int(i)*8
	return encoding.DecodeFixed64(it.data[base : base+8])
}

// SeekToFirst positions the iterator at the first record.
func (it *Iterator) SeekToFirst() {
	it.index = 0
	if it.handle.Count > 0 {
		it.current = it.data[it.offsetAt(0):]
	}
}

// Seek positions the iterator at the first internal key >=
// (userKey, seq, TypeValue), scanning the offset array linearly per
// spec.md §4.2.
func (it *Iterator) Seek(userKey []byte, seq uint64) {
	target := dbformat.LookupKey(userKey, seq)
	for i := uint64(0); i < it.handle.Count; i++ {
		rec := it.data[it.offsetAt(i):]
		klen := encoding.DecodeFixed64(rec[0:8])
		key := dbformat.InternalKey(rec[8 : 8+klen])
		if dbformat.Compare(key, target) >= 0 {
			it.index = i
			it.current = rec
			return
		}
	}
	it.index = it.handle.Count
}

// Valid reports whether the iterator is positioned at a record.
func (it *Iterator) Valid() bool {
	return it.index < it.handle.Count
}

// Key returns the internal key at the current position.
func (it *Iterator) Key() dbformat.InternalKey {
	klen := encoding.DecodeFixed64(it.current[0:8])
	return dbformat.InternalKey(it.current[8 : 8+klen])
}

// Value returns the value at the current position.
func (it *Iterator) Value() []byte {
	klen := encoding.DecodeFixed64(it.current[0:8])
	vlenOff := 8 + klen
	vlen := encoding.DecodeFixed64(it.current[vlenOff : vlenOff+8])
	valOff := vlenOff + 8
	return it.current[valOff : valOff+vlen]
}

// Next advances to the next record.
func (it *Iterator) Next() {
	klen := encoding.DecodeFixed64(it.current[0:8])
	vlenOff := 8 + klen
	vlen := encoding.DecodeFixed64(it.current[vlenOff : vlenOff+8])
	recSize := vlenOff + 8 + vlen
	it.current = it.current[recSize:]
	it.index++
}
