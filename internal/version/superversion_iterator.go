package version

import (
	wingiter "github.com/Megumi-X/wing/internal/iterator"
)

var _ wingiter.Iterator = (*RunIterator)(nil)

// NewSuperVersionIterator builds the unified range iterator described
// in spec.md §4.5: one iterator per memtable and per sorted run, merged
// through a min-heap keyed by internal key so that, for a duplicated
// user key, the smaller internal key (the newer version, since sequence
// numbers sort descending) surfaces first.
func NewSuperVersionIterator(sv *SuperVersion) *wingiter.HeapIterator {
	children := make([]wingiter.Iterator, 0, 2+len(sv.Immutables)+8)
	children = append(children, sv.Active.NewIterator())
	for i := len(sv.Immutables) - 1; i >= 0; i-- {
		children = append(children, sv.Immutables[i].NewIterator())
	}
	for _, it := range sv.Version.Iterators() {
		children = append(children, it)
	}
	return wingiter.NewHeapIterator(children)
}
