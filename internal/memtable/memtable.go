package memtable

import (
	"sync/atomic"

	"github.com/Megumi-X/wing/internal/dbformat"
)

// GetResult reports the outcome of a memtable lookup.
type GetResult int

const (
	// NotFound means no entry for the user key exists at or below the
	// requested sequence number in this memtable; the caller must keep
	// looking in older memtables and sorted runs.
	NotFound GetResult = iota
	// Found means the newest visible entry is a value.
	Found
	// Deleted means the newest visible entry is a tombstone; the caller
	// must stop searching older levels for this key entirely.
	Deleted
)

// MemTable is the mutable, in-memory write buffer described in spec.md
// §3/§4.6: a skip list ordered by internal key (user key ascending,
// sequence number descending), plus the bookkeeping flags it carries
// once it becomes immutable and is queued for flush.
//
// A MemTable's own Put/Del/Get require no locking against each other
// beyond what the owning database facade's write mutex already
// provides (spec.md §5), but NewIterator's returned iterator is safe
// to read concurrently with further Put/Del calls because skip list
// nodes are immutable once linked.
type MemTable struct {
	list *skipList

	approximateSize atomic.Int64

	flushInProgress atomic.Bool
	flushComplete   atomic.Bool
}

// New creates an empty memtable.
func New() *MemTable {
	return &MemTable{list: newSkipList()}
}

// Put records a value for userKey at the given sequence number.
func (m *MemTable) Put(userKey []byte, seq uint64, value []byte) {
	key := dbformat.Make(userKey, seq, dbformat.TypeValue)
	m.list.Insert(key, value)
	m.approximateSize.Add(int64(len(key) + len(value)))
}

// Del records a tombstone for userKey at the given sequence number.
func (m *MemTable) Del(userKey []byte, seq uint64) {
	key := dbformat.Make(userKey, seq, dbformat.TypeDeletion)
	m.list.Insert(key, nil)
	m.approximateSize.Add(int64(len(key)))
}

// Get looks up the newest entry for userKey visible at or before seq.
func (m *MemTable) Get(userKey []byte, seq uint64) ([]byte, GetResult) {
	it := m.list.newIterator()
	it.Seek(dbformat.LookupKey(userKey, seq))
	if !it.Valid() {
		return nil, NotFound
	}
	if string(it.Key().UserKey()) != string(userKey) {
		return nil, NotFound
	}
	switch it.Key().Type() {
	case dbformat.TypeDeletion:
		return nil, Deleted
	default:
		return it.Value(), Found
	}
}

// ApproximateSize returns an estimate, in bytes, of the memory the
// memtable's entries occupy — used by the database facade to decide
// when to rotate the active memtable (spec.md §4.6).
func (m *MemTable) ApproximateSize() int64 {
	return m.approximateSize.Load()
}

// MarkFlushInProgress transitions the memtable into the flushing state.
// It is a no-op if already marked.
func (m *MemTable) MarkFlushInProgress() { m.flushInProgress.Store(true) }

// FlushInProgress reports whether a flush worker has claimed this
// memtable.
func (m *MemTable) FlushInProgress() bool { return m.flushInProgress.Load() }

// MarkFlushComplete transitions the memtable into the flushed state,
// after which the database facade may drop it from the immutable queue.
func (m *MemTable) MarkFlushComplete() { m.flushComplete.Store(true) }

// FlushComplete reports whether the memtable has been durably written
// out as an SSTable and can be released.
func (m *MemTable) FlushComplete() bool { return m.flushComplete.Load() }

// Iterator exposes the narrow read surface the merge/iterator layer
// needs; it matches internal/sstable's iterator and the sorted-run
// iterator so they can be merged generically by internal/iterator.
type Iterator interface {
	Valid() bool
	Key() dbformat.InternalKey
	Value() []byte
	Next()
	SeekToFirst()
	Seek(dbformat.InternalKey)
}

// NewIterator returns an iterator over every entry currently in the
// memtable, in ascending internal-key order.
func (m *MemTable) NewIterator() Iterator {
	return m.list.newIterator()
}
