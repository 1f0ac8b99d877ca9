package sstable

import (
	"github.com/Megumi-X/wing/internal/block"
	"github.com/Megumi-X/wing/internal/dbformat"
)

// Iterator walks every record of a Reader's table in ascending
// internal-key order, crossing block boundaries as needed. It
// implements internal/iterator.Iterator so it composes with the
// memtable and merge iterators.
type Iterator struct {
	reader   *Reader
	blockIdx int
	cur      *block.Iterator
	err      error
}

func (it *Iterator) loadBlock(i int) {
	if i < 0 || i >= len(it.reader.index) {
		it.cur = nil
		it.blockIdx = len(it.reader.index)
		return
	}
	raw, handle, err := readBlock(it.reader.r, it.reader.index[i].handle)
	if err != nil {
		it.err = err
		it.cur = nil
		it.blockIdx = len(it.reader.index)
		return
	}
	it.blockIdx = i
	it.cur = block.NewIterator(raw, handle)
}

// SeekToFirst positions the iterator at the table's first record.
func (it *Iterator) SeekToFirst() {
	it.err = nil
	if len(it.reader.index) == 0 {
		it.cur = nil
		it.blockIdx = 0
		return
	}
	it.loadBlock(0)
	if it.cur != nil {
		it.cur.SeekToFirst()
	}
}

// Seek positions the iterator at the first record >= target.
func (it *Iterator) Seek(target dbformat.InternalKey) {
	it.err = nil
	idx := findBlock(it.reader.index, target)
	if idx >= len(it.reader.index) {
		it.cur = nil
		it.blockIdx = len(it.reader.index)
		return
	}
	it.loadBlock(idx)
	if it.cur == nil {
		return
	}
	it.cur.Seek(target.UserKey(), target.Seq())
	if !it.cur.Valid() {
		it.advanceToNextBlock()
	}
}

func findBlock(index []indexEntry, target dbformat.InternalKey) int {
	lo, hi := 0, len(index)
	for lo < hi {
		mid := (lo + hi) / 2
		if dbformat.Compare(index[mid].largestKey, target) >= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func (it *Iterator) advanceToNextBlock() {
	next := it.blockIdx + 1
	it.loadBlock(next)
	if it.cur != nil {
		it.cur.SeekToFirst()
	}
}

// Valid reports whether the iterator is positioned at a record.
func (it *Iterator) Valid() bool {
	return it.err == nil && it.cur != nil && it.cur.Valid()
}

// Key returns the current record's internal key.
func (it *Iterator) Key() dbformat.InternalKey { return it.cur.Key() }

// Value returns the current record's value.
func (it *Iterator) Value() []byte { return it.cur.Value() }

// Next advances to the next record, crossing into the next block when
// the current one is exhausted.
func (it *Iterator) Next() {
	if it.cur == nil {
		return
	}
	it.cur.Next()
	if !it.cur.Valid() {
		it.advanceToNextBlock()
	}
}

// Err returns any I/O or format error encountered while loading blocks.
func (it *Iterator) Err() error { return it.err }
