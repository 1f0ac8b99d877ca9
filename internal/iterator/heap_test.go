package iterator

import (
	"testing"

	"github.com/Megumi-X/wing/internal/dbformat"
)

// sliceIterator is a minimal Iterator over a pre-sorted slice, used to
// drive HeapIterator tests without depending on memtable or sstable.
type sliceIterator struct {
	entries []entry
	pos     int
}

type entry struct {
	key   dbformat.InternalKey
	value []byte
}

func newSliceIterator(entries []entry) *sliceIterator {
	return &sliceIterator{entries: entries, pos: len(entries)}
}

func (s *sliceIterator) Valid() bool { return s.pos >= 0 && s.pos < len(s.entries) }
func (s *sliceIterator) Key() dbformat.InternalKey {
	return s.entries[s.pos].key
}
func (s *sliceIterator) Value() []byte { return s.entries[s.pos].value }
func (s *sliceIterator) Next()         { s.pos++ }
func (s *sliceIterator) SeekToFirst()  { s.pos = 0 }
func (s *sliceIterator) Seek(target dbformat.InternalKey) {
	for i, e := range s.entries {
		if dbformat.Compare(e.key, target) >= 0 {
			s.pos = i
			return
		}
	}
	s.pos = len(s.entries)
}

func mk(userKey string, seq uint64) dbformat.InternalKey {
	return dbformat.Make([]byte(userKey), seq, dbformat.TypeValue)
}

func TestHeapIteratorEmpty(t *testing.T) {
	hi := NewHeapIterator(nil)
	hi.SeekToFirst()
	if hi.Valid() {
		t.Fatalf("expected empty merge iterator to be invalid")
	}
}

func TestHeapIteratorMergesTwoChildren(t *testing.T) {
	a := newSliceIterator([]entry{
		{mk("a", 1), []byte("1")},
		{mk("c", 1), []byte("3")},
		{mk("e", 1), []byte("5")},
	})
	b := newSliceIterator([]entry{
		{mk("b", 1), []byte("2")},
		{mk("d", 1), []byte("4")},
		{mk("f", 1), []byte("6")},
	})

	hi := NewHeapIterator([]Iterator{a, b})
	hi.SeekToFirst()

	want := []string{"a", "b", "c", "d", "e", "f"}
	for i, w := range want {
		if !hi.Valid() {
			t.Fatalf("position %d: expected valid", i)
		}
		if string(hi.Key().UserKey()) != w {
			t.Fatalf("position %d: expected %q, got %q", i, w, hi.Key().UserKey())
		}
		hi.Next()
	}
	if hi.Valid() {
		t.Fatalf("expected exhausted after last entry")
	}
}

func TestHeapIteratorOrdersNewerSeqFirstAcrossChildren(t *testing.T) {
	// Two "sorted runs" both holding an entry for the same user key at
	// different sequence numbers — the newer one must sort first.
	older := newSliceIterator([]entry{{mk("k", 1), []byte("old")}})
	newer := newSliceIterator([]entry{{mk("k", 9), []byte("new")}})

	hi := NewHeapIterator([]Iterator{older, newer})
	hi.SeekToFirst()

	if !hi.Valid() || string(hi.Value()) != "new" {
		t.Fatalf("expected newer sequence number first, got %q", hi.Value())
	}
	hi.Next()
	if !hi.Valid() || string(hi.Value()) != "old" {
		t.Fatalf("expected older entry second, got %q", hi.Value())
	}
}

func TestHeapIteratorSeek(t *testing.T) {
	a := newSliceIterator([]entry{{mk("a", 1), []byte("1")}, {mk("c", 1), []byte("3")}})
	b := newSliceIterator([]entry{{mk("b", 1), []byte("2")}, {mk("d", 1), []byte("4")}})

	hi := NewHeapIterator([]Iterator{a, b})
	hi.Seek(mk("bb", 1))
	if !hi.Valid() || string(hi.Key().UserKey()) != "c" {
		t.Fatalf("expected seek past 'bb' to land on 'c', got %q", hi.Key().UserKey())
	}
}

func TestHeapIteratorEmptyChildIgnored(t *testing.T) {
	a := newSliceIterator([]entry{{mk("a", 1), []byte("1")}})
	empty := newSliceIterator(nil)

	hi := NewHeapIterator([]Iterator{a, empty})
	hi.SeekToFirst()
	if !hi.Valid() || string(hi.Key().UserKey()) != "a" {
		t.Fatalf("expected to skip the empty child and land on 'a'")
	}
	hi.Next()
	if hi.Valid() {
		t.Fatalf("expected exhausted after single real entry")
	}
}

func TestHeapIteratorManyChildrenStayOrdered(t *testing.T) {
	var children []Iterator
	for i := 0; i < 10; i++ {
		entries := []entry{
			{mk(string(rune('a'+i)), 1), []byte{byte(i)}},
		}
		children = append(children, newSliceIterator(entries))
	}
	hi := NewHeapIterator(children)
	hi.SeekToFirst()

	var prev dbformat.InternalKey
	count := 0
	for hi.Valid() {
		if prev != nil && dbformat.Compare(prev, hi.Key()) > 0 {
			t.Fatalf("keys out of order: %q then %q", prev.UserKey(), hi.Key().UserKey())
		}
		prev = append(dbformat.InternalKey(nil), hi.Key()...)
		count++
		hi.Next()
	}
	if count != 10 {
		t.Fatalf("expected 10 merged entries, got %d", count)
	}
}
