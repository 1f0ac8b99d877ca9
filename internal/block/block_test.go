package block

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/Megumi-X/wing/internal/dbformat"
)

func TestBuilderIteratorRoundTrip(t *testing.T) {
	b := NewBuilder(DefaultBlockSize)
	var keys []dbformat.InternalKey
	for i := 0; i < 20; i++ {
		k := dbformat.Make([]byte(fmt.Sprintf("k%03d", i)), uint64(100-i), dbformat.TypeValue)
		v := []byte(fmt.Sprintf("v%03d", i))
		if !b.Append(k, v) {
			t.Fatalf("append %d failed unexpectedly", i)
		}
		keys = append(keys, k)
	}
	handle := Handle{Size: uint64(b.Size()), Count: uint64(b.Count())}
	data := b.Finish()
	handle.Size = uint64(len(data))

	it := NewIterator(data, handle)
	i := 0
	for it.SeekToFirst(); it.Valid(); it.Next() {
		if !bytes.Equal(it.Key(), keys[i]) {
			t.Fatalf("record %d: key mismatch", i)
		}
		wantVal := fmt.Sprintf("v%03d", i)
		if string(it.Value()) != wantVal {
			t.Fatalf("record %d: value mismatch: got %q want %q", i, it.Value(), wantVal)
		}
		i++
	}
	if i != 20 {
		t.Fatalf("expected 20 records, iterated %d", i)
	}
}

func TestBuilderRejectsOverflowWithoutMutating(t *testing.T) {
	b := NewBuilder(64)
	k := dbformat.Make([]byte("k"), 1, dbformat.TypeValue)
	v := bytes.Repeat([]byte("x"), 40)
	if !b.Append(k, v) {
		t.Fatalf("first append should succeed")
	}
	countBefore, sizeBefore := b.Count(), b.Size()
	if b.Append(k, v) {
		t.Fatalf("second append should be refused (would overflow)")
	}
	if b.Count() != countBefore || b.Size() != sizeBefore {
		t.Fatalf("refused append must not mutate builder state")
	}
}

func TestBuilderLargestKeyTracking(t *testing.T) {
	b := NewBuilder(DefaultBlockSize)
	k1 := dbformat.Make([]byte("a"), 5, dbformat.TypeValue)
	k2 := dbformat.Make([]byte("b"), 5, dbformat.TypeValue)
	b.Append(k1, nil)
	b.Append(k2, nil)
	if !bytes.Equal(b.LargestKey(), k2) {
		t.Fatalf("expected largest key to track the most recently larger key")
	}
}

func TestSeekFindsFirstGreaterOrEqual(t *testing.T) {
	b := NewBuilder(DefaultBlockSize)
	for i := 0; i < 10; i += 2 {
		k := dbformat.Make([]byte(fmt.Sprintf("k%03d", i)), 1, dbformat.TypeValue)
		b.Append(k, []byte("v"))
	}
	data := b.Finish()
	handle := Handle{Size: uint64(len(data)), Count: 5}
	it := NewIterator(data, handle)
	it.Seek([]byte("k003"), 1)
	if !it.Valid() {
		t.Fatalf("expected a valid position")
	}
	if string(it.Key().UserKey()) != "k004" {
		t.Fatalf("expected k004, got %q", it.Key().UserKey())
	}
}

func TestValidIsCountBasedNotTypeBased(t *testing.T) {
	b := NewBuilder(DefaultBlockSize)
	k := dbformat.Make([]byte("k"), 1, dbformat.TypeDeletion)
	b.Append(k, nil)
	data := b.Finish()
	handle := Handle{Size: uint64(len(data)), Count: 1}
	it := NewIterator(data, handle)
	it.SeekToFirst()
	if !it.Valid() {
		t.Fatalf("a tombstone record must still be iterable (count-based Valid)")
	}
	it.Next()
	if it.Valid() {
		t.Fatalf("iterator should be exhausted after the only record")
	}
}
