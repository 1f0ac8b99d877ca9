package flush

import (
	"fmt"
	"testing"

	"github.com/Megumi-X/wing/internal/memtable"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/vfs"
)

func TestJobRunWritesAllMemTableEntries(t *testing.T) {
	fs := vfs.NewMemFS()
	mem := memtable.New()
	for i := 0; i < 50; i++ {
		mem.Put([]byte(fmt.Sprintf("k%05d", i)), uint64(i+1), []byte(fmt.Sprintf("v%05d", i)))
	}
	mem.Del([]byte("k00010"), 51)

	job := NewJob(fs, "/db", 1<<20, sstable.DefaultBuilderOptions())
	tables, err := job.Run(mem)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("expected one output table, got %d", len(tables))
	}
	table := tables[0]
	defer table.Unref()

	// The tombstone shadows k00010's older value, which the flush drops.
	if table.Reader.NumRecords() != 50 {
		t.Fatalf("expected 49 values + 1 tombstone = 50 records, got %d", table.Reader.NumRecords())
	}

	val, res, err := table.Reader.Get([]byte("k00010"), 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res != sstable.Deleted {
		t.Fatalf("expected the tombstone to be visible, got %v/%q", res, val)
	}

	val, res, err = table.Reader.Get([]byte("k00020"), 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res != sstable.Found || string(val) != "v00020" {
		t.Fatalf("expected Found/v00020, got %v/%q", res, val)
	}

	if !fs.Exists(table.FileName) {
		t.Fatalf("expected the flushed SST to exist at %s", table.FileName)
	}
}

func TestJobRunOnEmptyMemTableReturnsError(t *testing.T) {
	fs := vfs.NewMemFS()
	job := NewJob(fs, "/db", 1<<20, sstable.DefaultBuilderOptions())
	_, err := job.Run(memtable.New())
	if err != ErrEmptyMemTable {
		t.Fatalf("expected ErrEmptyMemTable, got %v", err)
	}
}
