package memtable

import (
	"math"
	"testing"

	"github.com/Megumi-X/wing/internal/dbformat"
)

func TestPutThenGet(t *testing.T) {
	m := New()
	m.Put([]byte("a"), 1, []byte("va1"))
	v, res := m.Get([]byte("a"), 1)
	if res != Found || string(v) != "va1" {
		t.Fatalf("expected Found/va1, got %v/%q", res, v)
	}
}

func TestGetMissingKey(t *testing.T) {
	m := New()
	m.Put([]byte("a"), 1, []byte("va1"))
	if _, res := m.Get([]byte("zzz"), 100); res != NotFound {
		t.Fatalf("expected NotFound, got %v", res)
	}
}

func TestNewerPutShadowsOlder(t *testing.T) {
	m := New()
	m.Put([]byte("a"), 1, []byte("old"))
	m.Put([]byte("a"), 5, []byte("new"))
	v, res := m.Get([]byte("a"), 10)
	if res != Found || string(v) != "new" {
		t.Fatalf("expected new value visible at seq 10, got %v/%q", res, v)
	}
	v, res = m.Get([]byte("a"), 1)
	if res != Found || string(v) != "old" {
		t.Fatalf("expected old value visible at seq 1, got %v/%q", res, v)
	}
}

func TestDeleteShadowsOlderPut(t *testing.T) {
	m := New()
	m.Put([]byte("a"), 1, []byte("old"))
	m.Del([]byte("a"), 5)
	if _, res := m.Get([]byte("a"), 10); res != Deleted {
		t.Fatalf("expected Deleted, got %v", res)
	}
	if _, res := m.Get([]byte("a"), 1); res != Found {
		t.Fatalf("expected Found at seq before the delete, got %v", res)
	}
}

func TestApproximateSizeGrows(t *testing.T) {
	m := New()
	if m.ApproximateSize() != 0 {
		t.Fatalf("expected 0 initial size")
	}
	m.Put([]byte("a"), 1, []byte("value"))
	if m.ApproximateSize() == 0 {
		t.Fatalf("expected nonzero size after insert")
	}
}

func TestFlushFlags(t *testing.T) {
	m := New()
	if m.FlushInProgress() || m.FlushComplete() {
		t.Fatalf("new memtable should not be flushing or flushed")
	}
	m.MarkFlushInProgress()
	if !m.FlushInProgress() {
		t.Fatalf("expected flush in progress")
	}
	m.MarkFlushComplete()
	if !m.FlushComplete() {
		t.Fatalf("expected flush complete")
	}
}

func TestIteratorOrdersByInternalKey(t *testing.T) {
	m := New()
	m.Put([]byte("c"), 1, []byte("3"))
	m.Put([]byte("a"), 2, []byte("1"))
	m.Put([]byte("b"), 3, []byte("2"))
	m.Put([]byte("a"), 5, []byte("1-newer"))

	it := m.NewIterator()
	it.SeekToFirst()

	var userKeys []string
	for it.Valid() {
		userKeys = append(userKeys, string(it.Key().UserKey()))
		it.Next()
	}
	want := []string{"a", "a", "b", "c"}
	if len(userKeys) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), userKeys)
	}
	for i := range want {
		if userKeys[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q (full: %v)", i, want[i], userKeys[i], userKeys)
		}
	}
	// a's two entries must appear with the newer sequence number first.
	it.SeekToFirst()
	first := it.Key()
	it.Next()
	second := it.Key()
	if first.Seq() != 5 || second.Seq() != 2 {
		t.Fatalf("expected seq 5 before seq 2 for key 'a', got %d then %d", first.Seq(), second.Seq())
	}
}

func TestIteratorSeek(t *testing.T) {
	m := New()
	m.Put([]byte("a"), 1, []byte("1"))
	m.Put([]byte("c"), 1, []byte("3"))
	m.Put([]byte("e"), 1, []byte("5"))

	it := m.NewIterator()
	it.Seek(dbformat.LookupKey([]byte("c"), math.MaxUint64))
	if !it.Valid() || string(it.Key().UserKey()) != "c" {
		t.Fatalf("expected to land on 'c'")
	}

	it.Seek(dbformat.LookupKey([]byte("d"), math.MaxUint64))
	if !it.Valid() || string(it.Key().UserKey()) != "e" {
		t.Fatalf("expected seek on missing key 'd' to land on next key 'e'")
	}
}
