package version

import (
	"sync"
	"sync/atomic"

	"github.com/Megumi-X/wing/internal/memtable"
)

// SuperVersion is the snapshot (active_memtable, immutable_memtables,
// version) described in spec.md §3. SuperVersions are reference
// counted and shared by readers; the database facade keeps the
// current one and publishes replacements atomically.
type SuperVersion struct {
	Active     *memtable.MemTable
	Immutables []*memtable.MemTable
	Version    *Version
	seq        uint64

	refs atomic.Int32
}

// NewSuperVersion creates a SuperVersion with an initial reference count of one.
func NewSuperVersion(active *memtable.MemTable, immutables []*memtable.MemTable, v *Version, seq uint64) *SuperVersion {
	sv := &SuperVersion{Active: active, Immutables: immutables, Version: v, seq: seq}
	sv.refs.Store(1)
	for _, t := range v.AllTables() {
		t.Ref()
	}
	return sv
}

// Seq returns the sequence number visible to readers holding this
// SuperVersion.
func (sv *SuperVersion) Seq() uint64 { return sv.seq }

// Ref increments the reference count. Readers call this (via
// Holder.Acquire) when they capture the pointer.
func (sv *SuperVersion) Ref() { sv.refs.Add(1) }

// Unref decrements the reference count. When it reaches zero every
// table the version references is unreffed too, which may unlink
// files whose RemoveTag was set by a since-completed compaction.
func (sv *SuperVersion) Unref() {
	if sv.refs.Add(-1) != 0 {
		return
	}
	for _, t := range sv.Version.AllTables() {
		t.Unref()
	}
}

// GetResult and the sorted-run/level GetResult share the same enum so
// a caller doesn't need to translate between layers.

// Get checks the active memtable, then each immutable memtable
// newest-first, then the version; the first non-NotFound result wins
// (spec.md §4.5).
func (sv *SuperVersion) Get(userKey []byte, seq uint64) ([]byte, GetResult, error) {
	if v, res := sv.Active.Get(userKey, seq); res != memtable.NotFound {
		return v, fromMemtableResult(res), nil
	}
	for i := len(sv.Immutables) - 1; i >= 0; i-- {
		if v, res := sv.Immutables[i].Get(userKey, seq); res != memtable.NotFound {
			return v, fromMemtableResult(res), nil
		}
	}
	return sv.Version.Get(userKey, seq)
}

func fromMemtableResult(r memtable.GetResult) GetResult {
	switch r {
	case memtable.Found:
		return Found
	case memtable.Deleted:
		return Deleted
	default:
		return NotFound
	}
}

// Holder is the atomically-swappable current-SuperVersion pointer the
// database facade guards with sv_mutex (spec.md §5): readers take
// shared access just long enough to bump the pointee's ref count, and
// writers take exclusive access to install a replacement.
type Holder struct {
	mu sync.RWMutex
	sv *SuperVersion
}

// NewHolder wraps an initial SuperVersion.
func NewHolder(sv *SuperVersion) *Holder {
	return &Holder{sv: sv}
}

// Acquire returns the current SuperVersion with its reference count
// bumped; the caller must Unref it when done.
func (h *Holder) Acquire() *SuperVersion {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.sv.Ref()
	return h.sv
}

// Install atomically replaces the current SuperVersion with next and
// unrefs the previous one, matching spec.md §5's "linearizable" install
// guarantee: readers either see the pre- or post-install state.
func (h *Holder) Install(next *SuperVersion) {
	h.mu.Lock()
	prev := h.sv
	h.sv = next
	h.mu.Unlock()
	prev.Unref()
}
