// Package iterator provides the merge iterator used to present the
// memtable, immutable memtables, and sorted runs of an SSTable-backed
// database as a single ordered stream, for range scans and for
// compaction merges (spec.md §4, §7).
//
// Reference: aalhour/rockyardkv internal/iterator/merging_iterator.go
// (container/heap-based k-way merge). Trimmed to forward-only iteration
// since nothing in this database ever iterates backward, and keyed by
// dbformat.InternalKey instead of raw bytes so the heap's ordering is
// the internal-key comparator (user key ascending, sequence descending)
// rather than a plain bytewise compare.
package iterator

import (
	"container/heap"

	"github.com/Megumi-X/wing/internal/dbformat"
)

// Iterator is the narrow interface every source of internal-key-ordered
// records implements: the memtable's skip list iterator, the SSTable
// iterator, and this package's own HeapIterator (so merges compose).
type Iterator interface {
	Valid() bool
	Key() dbformat.InternalKey
	Value() []byte
	Next()
	SeekToFirst()
	Seek(target dbformat.InternalKey)
}

// HeapIterator merges several sorted children into a single ascending
// stream using a min-heap over their current keys. It does not
// deduplicate or drop tombstones — that is the caller's job (the
// database facade masks shadowed keys on read; compaction jobs decide
// tombstone elision per spec.md §7.3).
type HeapIterator struct {
	children []Iterator
	h        *minHeap
}

// NewHeapIterator builds a merge iterator over children. The children
// slice is retained; callers must not reuse it afterward.
func NewHeapIterator(children []Iterator) *HeapIterator {
	return &HeapIterator{
		children: children,
		h:        &minHeap{items: make([]heapItem, 0, len(children))},
	}
}

func (m *HeapIterator) rebuild(prime func(Iterator)) {
	m.h.items = m.h.items[:0]
	for i, c := range m.children {
		prime(c)
		if c.Valid() {
			m.h.items = append(m.h.items, heapItem{index: i, key: c.Key()})
		}
	}
	heap.Init(m.h)
}

// SeekToFirst positions the merge iterator at the smallest key across
// every child.
func (m *HeapIterator) SeekToFirst() {
	m.rebuild(func(c Iterator) { c.SeekToFirst() })
}

// Seek positions the merge iterator at the first entry with key >= target.
func (m *HeapIterator) Seek(target dbformat.InternalKey) {
	m.rebuild(func(c Iterator) { c.Seek(target) })
}

// Valid reports whether the iterator is positioned at an entry.
func (m *HeapIterator) Valid() bool { return m.h.Len() > 0 }

// Key returns the current entry's internal key.
func (m *HeapIterator) Key() dbformat.InternalKey {
	return m.children[m.h.items[0].index].Key()
}

// Value returns the current entry's value.
func (m *HeapIterator) Value() []byte {
	return m.children[m.h.items[0].index].Value()
}

// Next advances to the next entry in ascending internal-key order.
// When multiple children hold an entry for the same internal key
// (which cannot normally happen within one memtable or SSTable, but
// can happen across sorted runs holding distinct snapshots of the same
// user key), each is surfaced in turn; callers that need "newest
// wins" semantics must inspect sequence numbers themselves.
func (m *HeapIterator) Next() {
	if m.h.Len() == 0 {
		return
	}
	top := m.h.items[0].index
	m.children[top].Next()
	if m.children[top].Valid() {
		m.h.items[0].key = m.children[top].Key()
		heap.Fix(m.h, 0)
	} else {
		heap.Pop(m.h)
	}
}

type heapItem struct {
	index int
	key   dbformat.InternalKey
}

type minHeap struct {
	items []heapItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Less(i, j int) bool {
	return dbformat.Compare(h.items[i].key, h.items[j].key) < 0
}

func (h *minHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *minHeap) Push(x any) { h.items = append(h.items, x.(heapItem)) }

func (h *minHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
