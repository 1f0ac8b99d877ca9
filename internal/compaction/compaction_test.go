package compaction

import (
	"fmt"
	"testing"

	"github.com/Megumi-X/wing/internal/dbformat"
	wingiter "github.com/Megumi-X/wing/internal/iterator"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/internal/version"
	"github.com/Megumi-X/wing/vfs"
)

func buildTable(t *testing.T, fs *vfs.MemFS, name string, id uint64, startAt, n int) *version.Table {
	t.Helper()
	w, err := fs.Create(name)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b := sstable.NewBuilder(w, sstable.DefaultBuilderOptions())
	for i := startAt; i < startAt+n; i++ {
		k := dbformat.Make([]byte(fmt.Sprintf("k%05d", i)), uint64(i+1), dbformat.TypeValue)
		if err := b.Add(k, []byte(fmt.Sprintf("v%05d", i))); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	_ = w.Close()

	raf, err := fs.OpenRandomAccess(name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	size, err := raf.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	reader, err := sstable.Open(raf, size)
	if err != nil {
		t.Fatalf("sstable open: %v", err)
	}
	return version.NewTable(id, name, uint64(size), reader, fs, raf)
}

func TestNewPickerRejectsTiered(t *testing.T) {
	_, err := NewPicker(StrategyTiered, Options{})
	if err != ErrTieredNotImplemented {
		t.Fatalf("expected ErrTieredNotImplemented, got %v", err)
	}
}

func TestLeveledPickerMergesL0IntoEmptyLevel(t *testing.T) {
	fs := vfs.NewMemFS()
	t1 := buildTable(t, fs, "/l0-1.sst", 1, 0, 5)

	v := version.New()
	v.Append(0, version.NewSortedRun([]*version.Table{t1}))

	picker := &LeveledPicker{opts: Options{Level0CompactionTrigger: 0}}
	c := picker.Pick(v)
	if c == nil {
		t.Fatalf("expected a compaction to be picked")
	}
	// L0 is never a trivial move, even into an empty L1: L0 can hold
	// several overlapping runs, and a trivial move would relink them
	// into L1 as separate runs that leveled compaction never merges
	// again.
	if c.TrivialMove {
		t.Fatalf("L0 source should always merge via a CompactionJob, never trivial-move")
	}
	if c.SourceLevel != 0 || c.TargetLevel != 1 {
		t.Fatalf("expected L0->L1, got L%d->L%d", c.SourceLevel, c.TargetLevel)
	}
}

func TestLeveledPickerReturnsNilWhenBalanced(t *testing.T) {
	v := version.New()
	picker := &LeveledPicker{opts: Options{Level0CompactionTrigger: 4}}
	if c := picker.Pick(v); c != nil {
		t.Fatalf("expected no compaction for an empty version, got %+v", c)
	}
}

func TestLeveledPickerChoosesFewestOverlapSST(t *testing.T) {
	fs := vfs.NewMemFS()
	// L1 (source run, two SSTs): A = [k00000,k00004] lies entirely
	// outside the target run's range and overlaps nothing; B =
	// [k00010,k00024] spans both target SSTs.
	a := buildTable(t, fs, "/l1a.sst", 1, 0, 5)
	b := buildTable(t, fs, "/l1b.sst", 2, 10, 15)
	// L2 (target run, two disjoint SSTs): [k00010,k00014] and [k00020,k00024].
	t1 := buildTable(t, fs, "/l2a.sst", 3, 10, 5)
	t2 := buildTable(t, fs, "/l2b.sst", 4, 20, 5)

	v := version.New()
	v.Append(1, version.NewSortedRun([]*version.Table{a, b}))
	v.Append(2, version.NewSortedRun([]*version.Table{t1, t2}))

	// Ratio=100 makes the exponential per-level threshold gap large
	// enough that L1's byte size clears its threshold while L2's byte
	// size (roughly the same order of magnitude) falls under its own,
	// 100x larger, threshold — regardless of exact per-record overhead.
	picker := &LeveledPicker{opts: Options{BaseLevelSize: 1, Ratio: 100}}
	c := picker.Pick(v)
	if c == nil {
		t.Fatalf("expected a compaction to be picked")
	}
	if c.SourceLevel != 1 || c.TargetLevel != 2 {
		t.Fatalf("expected L1->L2, got L%d->L%d", c.SourceLevel, c.TargetLevel)
	}
	if c.TrivialMove {
		t.Fatalf("target level is non-empty, should not be a trivial move")
	}
	if len(c.InputTables) != 1 || c.InputTables[0] != a {
		t.Fatalf("leveled picker should choose the non-overlapping SST, got %+v", c.InputTables)
	}
}

func TestLazyLevelingPickerMergesSingleLevel(t *testing.T) {
	fs := vfs.NewMemFS()
	t1 := buildTable(t, fs, "/only.sst", 1, 0, 3)
	v := version.New()
	v.Append(0, version.NewSortedRun([]*version.Table{t1}))

	picker := &LazyLevelingPicker{opts: Options{BaseLevelSize: 1000, Ratio: 4}}
	c := picker.Pick(v)
	// The only level is L0, which can hold several overlapping runs, so
	// it always merges via a CompactionJob rather than trivial-moving.
	if c == nil || c.TrivialMove || c.SourceLevel != 0 || c.TargetLevel != 1 {
		t.Fatalf("expected a merge out of L0 into L1, got %+v", c)
	}
}

func TestFluidPickerGrowsKiLazily(t *testing.T) {
	fs := vfs.NewMemFS()
	l0a := buildTable(t, fs, "/f0a.sst", 1, 0, 1)
	l0b := buildTable(t, fs, "/f0b.sst", 2, 1, 1)
	l1 := buildTable(t, fs, "/f1.sst", 3, 0, 1)

	v := version.New()
	v.Append(0, version.NewSortedRun([]*version.Table{l0a}))
	v.Append(0, version.NewSortedRun([]*version.Table{l0b}))
	v.Append(1, version.NewSortedRun([]*version.Table{l1}))

	picker := &FluidPicker{opts: Options{BaseLevelSize: 1 << 30, Ratio: 4}}
	c := picker.Pick(v)
	if c == nil {
		t.Fatalf("expected a compaction once L0 hits its default fan-out of 2")
	}
	if len(picker.kI) != len(v.Levels)-1 {
		t.Fatalf("expected k_i to grow to %d entries, got %d", len(v.Levels)-1, len(picker.kI))
	}
}

func TestJobRunMergesAndDropsShadowedKeys(t *testing.T) {
	fs := vfs.NewMemFS()
	// Two tables both writing "k00000" at different sequence numbers;
	// the merge should keep only the newer one.
	older, err := fs.Create("/older.sst")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ob := sstable.NewBuilder(older, sstable.DefaultBuilderOptions())
	if err := ob.Add(dbformat.Make([]byte("k00000"), 1, dbformat.TypeValue), []byte("old-value")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ob.Add(dbformat.Make([]byte("k00001"), 1, dbformat.TypeValue), []byte("v1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ob.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	_ = older.Close()

	newer, err := fs.Create("/newer.sst")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	nb := sstable.NewBuilder(newer, sstable.DefaultBuilderOptions())
	if err := nb.Add(dbformat.Make([]byte("k00000"), 5, dbformat.TypeValue), []byte("new-value")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := nb.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	_ = newer.Close()

	oraf, _ := fs.OpenRandomAccess("/older.sst")
	osize, _ := oraf.Size()
	oreader, err := sstable.Open(oraf, osize)
	if err != nil {
		t.Fatalf("open older: %v", err)
	}
	oldTable := version.NewTable(1, "/older.sst", uint64(osize), oreader, fs, oraf)

	nraf, _ := fs.OpenRandomAccess("/newer.sst")
	nsize, _ := nraf.Size()
	nreader, err := sstable.Open(nraf, nsize)
	if err != nil {
		t.Fatalf("open newer: %v", err)
	}
	newTable := version.NewTable(2, "/newer.sst", uint64(nsize), nreader, fs, nraf)

	oldRun := version.NewSortedRun([]*version.Table{oldTable})
	newRun := version.NewSortedRun([]*version.Table{newTable})

	merged := wingiter.NewHeapIterator([]wingiter.Iterator{
		version.NewRunIterator(newRun),
		version.NewRunIterator(oldRun),
	})

	job := NewJob(fs, "/", 1<<20, sstable.DefaultBuilderOptions())
	outputs, err := job.Run(merged)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected a single output table, got %d", len(outputs))
	}

	val, res, err := outputs[0].Reader.Get([]byte("k00000"), 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res != sstable.Found || string(val) != "new-value" {
		t.Fatalf("expected the newer value to survive the merge, got %v/%q", res, val)
	}

	if outputs[0].Reader.NumRecords() != 2 {
		t.Fatalf("expected 2 surviving records (k00000 newest, k00001), got %d", outputs[0].Reader.NumRecords())
	}
}

