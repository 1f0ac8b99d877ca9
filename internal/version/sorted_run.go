package version

import (
	"sort"

	"github.com/Megumi-X/wing/internal/dbformat"
	"github.com/Megumi-X/wing/internal/sstable"
)

// GetResult mirrors sstable.GetResult at the sorted-run/level/version
// layer so callers need not import internal/sstable for this enum.
type GetResult int

const (
	NotFound GetResult = iota
	Found
	Deleted
)

func fromTableResult(r sstable.GetResult) GetResult {
	switch r {
	case sstable.Found:
		return Found
	case sstable.Deleted:
		return Deleted
	default:
		return NotFound
	}
}

// SortedRun is an ordered list of SSTables with pairwise disjoint,
// ascending key ranges (spec.md §3). It admits binary search to locate
// the single table that might contain a user key.
type SortedRun struct {
	Tables []*Table
}

// NewSortedRun builds a SortedRun from already-disjoint, already-sorted
// tables (the caller — flush or compaction — is responsible for the
// ordering invariant).
func NewSortedRun(tables []*Table) *SortedRun {
	return &SortedRun{Tables: tables}
}

// Get binary-searches the run's tables by largest key and delegates to
// the single candidate table (spec.md §4.4).
func (r *SortedRun) Get(userKey []byte, seq uint64) ([]byte, GetResult, error) {
	if len(r.Tables) == 0 {
		return nil, NotFound, nil
	}
	target := dbformat.LookupKey(userKey, seq)
	idx := sort.Search(len(r.Tables), func(i int) bool {
		return dbformat.Compare(r.Tables[i].LargestKey(), target) >= 0
	})
	if idx == len(r.Tables) {
		return nil, NotFound, nil
	}
	v, res, err := r.Tables[idx].Reader.Get(userKey, seq)
	return v, fromTableResult(res), err
}

// TotalSize returns the sum of every table's on-disk size in the run.
func (r *SortedRun) TotalSize() uint64 {
	var total uint64
	for _, t := range r.Tables {
		total += t.FileSize
	}
	return total
}

// RunIterator walks a SortedRun's tables in ascending internal-key
// order, advancing to the next table once the current one is
// exhausted (spec.md §4.4, "SortedRunIterator").
type RunIterator struct {
	run *SortedRun
	idx int
	cur *sstable.Iterator
}

// NewRunIterator creates an iterator over run.
func NewRunIterator(run *SortedRun) *RunIterator {
	return &RunIterator{run: run}
}

func (it *RunIterator) loadTable(i int) {
	if i < 0 || i >= len(it.run.Tables) {
		it.idx = len(it.run.Tables)
		it.cur = nil
		return
	}
	it.idx = i
	it.cur = it.run.Tables[i].Reader.NewIterator()
}

// SeekToFirst positions the iterator at the run's first record.
func (it *RunIterator) SeekToFirst() {
	if len(it.run.Tables) == 0 {
		it.idx = 0
		it.cur = nil
		return
	}
	it.loadTable(0)
	it.cur.SeekToFirst()
}

// Seek uses the run's index to jump directly to the table that might
// hold target, then seeks within it (spec.md §4.4).
func (it *RunIterator) Seek(target dbformat.InternalKey) {
	idx := sort.Search(len(it.run.Tables), func(i int) bool {
		return dbformat.Compare(it.run.Tables[i].LargestKey(), target) >= 0
	})
	if idx == len(it.run.Tables) {
		it.idx = len(it.run.Tables)
		it.cur = nil
		return
	}
	it.loadTable(idx)
	it.cur.Seek(target)
	if !it.cur.Valid() {
		it.advance()
	}
}

func (it *RunIterator) advance() {
	it.loadTable(it.idx + 1)
	if it.cur != nil {
		it.cur.SeekToFirst()
	}
}

// Valid reports whether the iterator is positioned at a record.
func (it *RunIterator) Valid() bool { return it.cur != nil && it.cur.Valid() }

// Key returns the current record's internal key.
func (it *RunIterator) Key() dbformat.InternalKey { return it.cur.Key() }

// Value returns the current record's value.
func (it *RunIterator) Value() []byte { return it.cur.Value() }

// Next advances to the next record, crossing into the next table when
// the current one is exhausted.
func (it *RunIterator) Next() {
	if it.cur == nil {
		return
	}
	it.cur.Next()
	if !it.cur.Valid() {
		it.advance()
	}
}
