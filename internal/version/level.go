package version

// Level is an ordered list of sorted runs (spec.md §3). L0 may hold
// multiple runs with overlapping ranges — each flush appends one; L1
// and below hold exactly one run under leveled compaction.
type Level struct {
	Runs      []*SortedRun
	totalSize uint64
}

// Append extends the run list and accumulates byte size (spec.md §4.4,
// "Level::Append extends the run list and accumulates byte size").
func (l *Level) Append(run *SortedRun) {
	l.Runs = append(l.Runs, run)
	l.totalSize += run.TotalSize()
}

// TotalSize returns the accumulated byte size of every run in the level.
func (l *Level) TotalSize() uint64 { return l.totalSize }

// NumRuns returns the number of sorted runs in the level.
func (l *Level) NumRuns() int { return len(l.Runs) }

// Get tries runs from most-recently-appended to oldest, which only
// matters on L0 where runs may overlap (spec.md §4.4).
func (l *Level) Get(userKey []byte, seq uint64) ([]byte, GetResult, error) {
	for i := len(l.Runs) - 1; i >= 0; i-- {
		v, res, err := l.Runs[i].Get(userKey, seq)
		if err != nil {
			return nil, NotFound, err
		}
		if res != NotFound {
			return v, res, nil
		}
	}
	return nil, NotFound, nil
}

// Iterators returns one RunIterator per run, newest-appended last so a
// caller merging them via a min-heap still sees, for ties, the most
// recently appended run surface its entry last into Next() ordering —
// tie-breaking across runs is handled by sequence number, not by this
// ordering, so the order here only affects which RunIterator object
// backs which heap slot.
func (l *Level) Iterators() []*RunIterator {
	its := make([]*RunIterator, len(l.Runs))
	for i, r := range l.Runs {
		its[i] = NewRunIterator(r)
	}
	return its
}
