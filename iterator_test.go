package wing

import (
	"testing"

	"github.com/Megumi-X/wing/vfs"
)

func TestIteratorSeekMiddle(t *testing.T) {
	db := openTestDB(t, testOptions(t))
	for _, k := range []string{"a", "c", "e", "g"} {
		if err := db.Put([]byte(k), []byte(k+k)); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	it := db.Seek([]byte("d"))
	defer it.Close()
	if !it.Valid() || string(it.Key()) != "e" {
		t.Fatalf("Seek(d) landed on %q, want e", it.Key())
	}
	it.Next()
	if !it.Valid() || string(it.Key()) != "g" {
		t.Fatalf("Next after e landed on %q, want g", it.Key())
	}
	it.Next()
	if it.Valid() {
		t.Fatalf("iterator should be exhausted, still at %q", it.Key())
	}
}

func TestIteratorSeekPastEnd(t *testing.T) {
	db := openTestDB(t, testOptions(t))
	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	it := db.Seek([]byte("z"))
	defer it.Close()
	if it.Valid() {
		t.Fatalf("Seek past the last key should be invalid, got %q", it.Key())
	}
}

func TestIteratorOnEmptyDatabase(t *testing.T) {
	db := openTestDB(t, testOptions(t))
	it := db.Begin()
	defer it.Close()
	if it.Valid() {
		t.Fatalf("iterator over an empty database should be invalid")
	}
}

func TestIteratorSkipsTombstones(t *testing.T) {
	db := openTestDB(t, testOptions(t))
	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	if err := db.Put([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("Put b: %v", err)
	}
	if err := db.Del([]byte("a")); err != nil {
		t.Fatalf("Del a: %v", err)
	}

	it := db.Begin()
	defer it.Close()
	if !it.Valid() || string(it.Key()) != "b" {
		t.Fatalf("first visible key = %q, want b (a is tombstoned)", it.Key())
	}
	it.Next()
	if it.Valid() {
		t.Fatalf("expected only one visible key, got another at %q", it.Key())
	}
}

func TestIteratorCloseReleasesSnapshot(t *testing.T) {
	opts := testOptions(t)
	opts.FS = vfs.NewMemFS()
	db := openTestDB(t, opts)
	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	it := db.Begin()
	if err := it.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Closing releases the SuperVersion ref; the database itself must
	// remain fully usable afterward.
	v, err := db.Get([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("Get after iterator Close = %q, %v; want \"1\", nil", v, err)
	}
}
