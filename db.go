package wing

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Megumi-X/wing/internal/compaction"
	"github.com/Megumi-X/wing/internal/dbformat"
	"github.com/Megumi-X/wing/internal/flush"
	wingiter "github.com/Megumi-X/wing/internal/iterator"
	"github.com/Megumi-X/wing/internal/logging"
	"github.com/Megumi-X/wing/internal/memtable"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/internal/version"
	"github.com/Megumi-X/wing/vfs"
)

// DB is an open LSM-tree storage engine: a memtable write path, a
// SuperVersion-guarded read path, and two background workers that drain
// the immutable queue and run compactions (spec.md §4.11, §5).
type DB struct {
	opts   Options
	fs     vfs.FS
	logger logging.Logger

	// writeMu serializes Put/Del: it is held only long enough to bump
	// the sequence counter and insert the record into the active
	// memtable (spec.md §5, write_mutex).
	writeMu sync.Mutex
	seq     uint64
	active  *memtable.MemTable

	// dbMu guards the immutable queue, the current Version, and picker
	// bookkeeping (spec.md §5, db_mutex).
	dbMu sync.Mutex
	imm  []*memtable.MemTable
	cur  *version.Version

	sv *version.Holder // sv_mutex equivalent; see internal/version.Holder

	picker     compaction.Picker
	flushJob   *flush.Job
	compactJob *compaction.Job

	flushSignal   chan struct{}
	compactSignal chan struct{}
	shutdownCh    chan struct{}
	wg            sync.WaitGroup

	bgMu           sync.Mutex
	flushRunning   bool
	compactRunning bool

	bgErrMu sync.Mutex
	bgErr   error

	closed atomic.Bool

	stats stats
}

// Open creates or resumes a database at opts.DBPath.
func Open(opts Options) (*DB, error) {
	if opts.DBPath == "" {
		return nil, fmt.Errorf("wing: Options.DBPath is required")
	}
	if opts.FS == nil {
		opts.FS = vfs.NewOSFS()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(nil, "wing", logging.LevelInfo)
	}
	if opts.OnFatalError == nil {
		logger := opts.Logger
		opts.OnFatalError = func(source string, err error) {
			logger.Errorf("%s: fatal: %v", source, err)
		}
	}

	picker, err := compaction.NewPicker(opts.CompactionStrategy, compaction.Options{
		BaseLevelSize:           opts.WriteBufferSize,
		Ratio:                   opts.CompactionSizeRatio,
		Level0CompactionTrigger: int(opts.Level0CompactionTrigger),
	})
	if err != nil {
		return nil, err
	}

	fs := opts.FS
	exists := fs.Exists(metadataPath(opts.DBPath))
	if !exists {
		if !opts.CreateNew {
			return nil, ErrDBNotFound
		}
		if err := fs.MkdirAll(opts.DBPath, 0o755); err != nil {
			return nil, err
		}
	} else if opts.CreateNew {
		return nil, ErrDBExists
	}

	var seq uint64
	var v *version.Version
	if exists {
		var nextFileID uint64
		seq, nextFileID, v, err = readMetadata(fs, opts.DBPath)
		if err != nil {
			return nil, err
		}
		sstable.ResumeFileID(nextFileID)
	} else {
		v = version.New()
	}

	builderOpts := sstable.BuilderOptions{
		BlockSize:       int(opts.BlockSize),
		BloomBitsPerKey: int(opts.BloomBitsPerKey),
		Compression:     opts.Compression,
	}

	db := &DB{
		opts:          opts,
		fs:            fs,
		logger:        opts.Logger,
		seq:           seq,
		active:        memtable.New(),
		cur:           v,
		picker:        picker,
		flushJob:      flush.NewJob(fs, opts.DBPath, opts.SSTFileSize, builderOpts),
		compactJob:    compaction.NewJob(fs, opts.DBPath, opts.SSTFileSize, builderOpts),
		flushSignal:   make(chan struct{}, 1),
		compactSignal: make(chan struct{}, 1),
		shutdownCh:    make(chan struct{}),
	}
	db.sv = version.NewHolder(version.NewSuperVersion(db.active, nil, db.cur, db.seq))

	db.wg.Add(2)
	go db.flushWorker()
	go db.compactWorker()

	return db, nil
}

// Put writes value for key, visible to readers as soon as it returns.
func (db *DB) Put(key, value []byte) error {
	return db.write(key, value, dbformat.TypeValue)
}

// Del writes a tombstone for key.
func (db *DB) Del(key []byte) error {
	return db.write(key, nil, dbformat.TypeDeletion)
}

func (db *DB) write(key, value []byte, typ dbformat.RecordType) error {
	if db.closed.Load() {
		return ErrDBClosed
	}
	if err := db.waitForRoom(); err != nil {
		return err
	}

	db.writeMu.Lock()
	if db.closed.Load() {
		db.writeMu.Unlock()
		return ErrDBClosed
	}
	if err := db.backgroundError(); err != nil {
		db.writeMu.Unlock()
		return err
	}
	db.seq++
	seq := db.seq
	active := db.active
	if typ == dbformat.TypeDeletion {
		active.Del(key, seq)
	} else {
		active.Put(key, seq, value)
	}
	needRotate := active.ApproximateSize() >= int64(db.opts.WriteBufferSize)
	db.writeMu.Unlock()

	if needRotate {
		db.rotateMemtable()
	}
	return nil
}

// waitForRoom blocks, releasing no lock it does not also reacquire each
// pass, while the immutable queue or L0 is saturated, giving the
// background workers time to catch up (spec.md §5, back-pressure).
func (db *DB) waitForRoom() error {
	for {
		db.dbMu.Lock()
		l0 := 0
		if l := db.cur.Level(0); l != nil {
			l0 = l.NumRuns()
		}
		stall := len(db.imm) >= int(db.opts.MaxImmutableCount) || l0 >= int(db.opts.Level0StopWritesTrigger)
		db.dbMu.Unlock()
		if !stall {
			return nil
		}
		if db.closed.Load() {
			return ErrDBClosed
		}
		if err := db.backgroundError(); err != nil {
			return err
		}
		db.signalFlush()
		db.signalCompact()
		time.Sleep(time.Millisecond)
	}
}

// rotateMemtable seals the active memtable into the immutable queue and
// installs a SuperVersion reflecting a fresh active memtable, then wakes
// the flush worker.
func (db *DB) rotateMemtable() {
	db.writeMu.Lock()
	db.dbMu.Lock()
	old := db.active
	if old.ApproximateSize() < int64(db.opts.WriteBufferSize) {
		// another writer already rotated between our check and this lock
		db.dbMu.Unlock()
		db.writeMu.Unlock()
		return
	}
	old.MarkFlushInProgress()
	db.active = memtable.New()
	db.imm = append(db.imm, old)
	sv := version.NewSuperVersion(db.active, cloneImmSlice(db.imm), db.cur, db.seq)
	db.dbMu.Unlock()
	db.writeMu.Unlock()

	db.sv.Install(sv)
	db.signalFlush()
}

// Get returns the value visible for key, or ErrNotFound if it has no
// value (absent or shadowed by a tombstone).
func (db *DB) Get(key []byte) ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrDBClosed
	}
	sv := db.sv.Acquire()
	defer sv.Unref()
	seq := db.currentSeq()

	val, res, err := sv.Get(key, seq)
	if err != nil {
		return nil, err
	}
	if res != version.Found {
		return nil, ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

// Begin returns an iterator positioned before the first key of a
// snapshot taken at the moment Begin is called.
func (db *DB) Begin() *Iterator {
	return db.newIterator(nil)
}

// Seek returns an iterator positioned at the first key >= userKey in a
// snapshot taken at the moment Seek is called.
func (db *DB) Seek(userKey []byte) *Iterator {
	return db.newIterator(userKey)
}

func (db *DB) newIterator(seekKey []byte) *Iterator {
	sv := db.sv.Acquire()
	seq := db.currentSeq()
	it := newIterator(sv, seq)
	if seekKey != nil {
		it.Seek(seekKey)
	} else {
		it.SeekToFirst()
	}
	return it
}

func (db *DB) currentSeq() uint64 {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return db.seq
}

func (db *DB) backgroundError() error {
	db.bgErrMu.Lock()
	defer db.bgErrMu.Unlock()
	return db.bgErr
}

func (db *DB) setBackgroundError(err error) {
	db.bgErrMu.Lock()
	if db.bgErr == nil {
		db.bgErr = err
	}
	db.bgErrMu.Unlock()
}

func (db *DB) signalFlush() {
	select {
	case db.flushSignal <- struct{}{}:
	default:
	}
}

func (db *DB) signalCompact() {
	select {
	case db.compactSignal <- struct{}{}:
	default:
	}
}

// FlushAll forces the active memtable into the immutable queue (if it
// holds anything) and blocks until every immutable memtable has been
// flushed and every compaction the resulting version needs has run.
func (db *DB) FlushAll() error {
	if db.closed.Load() {
		return ErrDBClosed
	}
	return db.flushAll()
}

func (db *DB) flushAll() error {
	db.writeMu.Lock()
	db.dbMu.Lock()
	if db.active.ApproximateSize() > 0 {
		old := db.active
		old.MarkFlushInProgress()
		db.active = memtable.New()
		db.imm = append(db.imm, old)
		sv := version.NewSuperVersion(db.active, cloneImmSlice(db.imm), db.cur, db.seq)
		db.dbMu.Unlock()
		db.writeMu.Unlock()
		db.sv.Install(sv)
		db.signalFlush()
	} else {
		db.dbMu.Unlock()
		db.writeMu.Unlock()
	}
	return db.waitForFlushAndCompaction()
}

// WaitForFlushAndCompaction blocks until the immutable queue is empty
// and the current version satisfies the compaction strategy's shape
// invariants (spec.md §4.11).
func (db *DB) WaitForFlushAndCompaction() error {
	if db.closed.Load() {
		return ErrDBClosed
	}
	return db.waitForFlushAndCompaction()
}

func (db *DB) waitForFlushAndCompaction() error {
	for {
		if err := db.backgroundError(); err != nil {
			return err
		}
		db.dbMu.Lock()
		immEmpty := len(db.imm) == 0
		pending := db.picker.Pick(db.cur) != nil
		db.dbMu.Unlock()

		db.bgMu.Lock()
		running := db.flushRunning || db.compactRunning
		db.bgMu.Unlock()

		if immEmpty && !pending && !running {
			return nil
		}
		if pending {
			db.signalCompact()
		}
		time.Sleep(time.Millisecond)
	}
}

// DropAll removes every key from the database: it drains outstanding
// flush/compaction work, marks every on-disk table for removal, and
// installs an empty version (SPEC_FULL.md §C.1, grounded on the
// original source's DBImpl::DropAll).
func (db *DB) DropAll() error {
	if db.closed.Load() {
		return ErrDBClosed
	}
	if err := db.flushAll(); err != nil {
		return err
	}

	db.writeMu.Lock()
	db.dbMu.Lock()
	old := db.cur
	for _, t := range old.AllTables() {
		t.SetRemoveTag()
	}
	db.cur = version.New()
	db.active = memtable.New()
	db.imm = nil
	seq := db.seq
	db.dbMu.Unlock()
	db.writeMu.Unlock()

	sv := version.NewSuperVersion(db.active, nil, db.cur, seq)
	db.sv.Install(sv)
	return nil
}

// Stats returns a point-in-time snapshot of the database's activity
// counters and per-level file counts (SPEC_FULL.md §C.4).
func (db *DB) Stats() Stats {
	db.dbMu.Lock()
	counts := make([]int, db.cur.NumLevels())
	for i := range counts {
		l := db.cur.Level(i)
		for _, run := range l.Runs {
			counts[i] += len(run.Tables)
		}
	}
	db.dbMu.Unlock()

	return Stats{
		BytesFlushed:    db.stats.bytesFlushed.Load(),
		BytesCompacted:  db.stats.bytesCompacted.Load(),
		FlushCount:      db.stats.flushCount.Load(),
		CompactionCount: db.stats.compactionCount.Load(),
		LevelFileCounts: counts,
	}
}

// Close drains outstanding writes, persists a metadata checkpoint, and
// stops the background workers. Close is idempotent.
func (db *DB) Close() error {
	if db.closed.Load() {
		return nil
	}
	if err := db.flushAll(); err != nil && !errors.Is(err, ErrDBClosed) {
		db.logger.Warnf("close: drain failed: %v", err)
	}
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(db.shutdownCh)
	db.wg.Wait()

	// Synchronize with any writer that slipped past the closed check
	// above before the CompareAndSwap above took effect: write()
	// re-checks closed once it holds writeMu, so acquiring it here
	// guarantees no such writer is still mutating db.seq/db.active.
	db.writeMu.Lock()
	db.dbMu.Lock()
	v := db.cur
	seq := db.seq
	db.dbMu.Unlock()
	db.writeMu.Unlock()

	return writeMetadata(db.fs, db.opts.DBPath, seq, sstable.PeekNextFileID(), v)
}

// flushWorker drains the immutable queue whenever signaled.
func (db *DB) flushWorker() {
	defer db.wg.Done()
	for {
		select {
		case <-db.shutdownCh:
			return
		case <-db.flushSignal:
		}
		db.bgMu.Lock()
		db.flushRunning = true
		db.bgMu.Unlock()

		db.drainImmutables()

		db.bgMu.Lock()
		db.flushRunning = false
		db.bgMu.Unlock()
	}
}

func (db *DB) drainImmutables() {
	for {
		db.dbMu.Lock()
		if len(db.imm) == 0 {
			db.dbMu.Unlock()
			return
		}
		mem := db.imm[0]
		db.dbMu.Unlock()

		tables, err := db.flushJob.Run(mem)
		if err != nil {
			if errors.Is(err, flush.ErrEmptyMemTable) {
				db.dbMu.Lock()
				db.imm = db.imm[1:]
				db.dbMu.Unlock()
				continue
			}
			db.opts.OnFatalError("flush", err)
			db.setBackgroundError(err)
			return
		}
		mem.MarkFlushComplete()

		seq := db.currentSeq()
		db.dbMu.Lock()
		db.imm = db.imm[1:]
		nv := cloneVersion(db.cur)
		nv.Append(0, version.NewSortedRun(tables))
		db.cur = nv
		sv := version.NewSuperVersion(db.active, cloneImmSlice(db.imm), db.cur, seq)
		db.dbMu.Unlock()

		db.sv.Install(sv)

		var bytesWritten uint64
		for _, t := range tables {
			t.Unref() // drop the flush job's creation ref; the new SuperVersion now owns one
			bytesWritten += t.FileSize
		}

		db.stats.bytesFlushed.Add(bytesWritten)
		db.stats.flushCount.Add(1)
		db.signalCompact()
	}
}

// compactWorker runs compactions whenever signaled, until the picker
// reports the version satisfies the strategy's shape invariants.
func (db *DB) compactWorker() {
	defer db.wg.Done()
	for {
		select {
		case <-db.shutdownCh:
			return
		case <-db.compactSignal:
		}
		db.bgMu.Lock()
		db.compactRunning = true
		db.bgMu.Unlock()

		db.drainCompactions()

		db.bgMu.Lock()
		db.compactRunning = false
		db.bgMu.Unlock()
	}
}

func (db *DB) drainCompactions() {
	for {
		db.dbMu.Lock()
		c := db.picker.Pick(db.cur)
		db.dbMu.Unlock()
		if c == nil {
			return
		}
		if err := db.runCompaction(c); err != nil {
			db.opts.OnFatalError("compaction", err)
			db.setBackgroundError(err)
			return
		}
	}
}

func (db *DB) runCompaction(c *compaction.Compaction) error {
	if c.TrivialMove {
		seq := db.currentSeq()
		db.dbMu.Lock()
		nv := cloneVersion(db.cur)
		removeTablesFromLevel(nv, c.SourceLevel, c.InputTables)
		for _, run := range c.InputRuns {
			nv.Append(c.TargetLevel, run)
		}
		db.cur = nv
		sv := version.NewSuperVersion(db.active, cloneImmSlice(db.imm), db.cur, seq)
		db.dbMu.Unlock()

		db.sv.Install(sv)
		db.stats.compactionCount.Add(1)
		return nil
	}

	children := make([]wingiter.Iterator, 0, len(c.InputTables)+1)
	for _, t := range c.InputTables {
		children = append(children, version.NewRunIterator(version.NewSortedRun([]*version.Table{t})))
	}
	if c.TargetRun != nil {
		children = append(children, version.NewRunIterator(c.TargetRun))
	}
	outputs, err := db.compactJob.Run(wingiter.NewHeapIterator(children))
	if err != nil {
		return err
	}

	for _, t := range c.InputTables {
		t.SetRemoveTag()
	}
	if c.TargetRun != nil {
		for _, t := range c.TargetRun.Tables {
			t.SetRemoveTag()
		}
	}

	seq := db.currentSeq()
	db.dbMu.Lock()
	nv := cloneVersion(db.cur)
	removeTablesFromLevel(nv, c.SourceLevel, c.InputTables)
	if c.TargetRun != nil {
		removeRun(nv, c.TargetLevel, c.TargetRun)
	}
	nv.Append(c.TargetLevel, version.NewSortedRun(outputs))
	db.cur = nv
	sv := version.NewSuperVersion(db.active, cloneImmSlice(db.imm), db.cur, seq)
	db.dbMu.Unlock()

	db.sv.Install(sv)

	var bytesWritten uint64
	for _, t := range outputs {
		t.Unref() // drop the compaction job's creation ref
		bytesWritten += t.FileSize
	}
	db.stats.bytesCompacted.Add(bytesWritten)
	db.stats.compactionCount.Add(1)
	return nil
}

// cloneVersion rebuilds a Version with fresh *Level wrappers so mutating
// it cannot reach back into a Version any installed SuperVersion still
// references (version.go documents Versions as immutable once built).
func cloneVersion(v *version.Version) *version.Version {
	nv := version.New()
	for i, l := range v.Levels {
		for _, run := range l.Runs {
			nv.Append(i, run)
		}
	}
	return nv
}

func cloneImmSlice(imm []*memtable.MemTable) []*memtable.MemTable {
	return append([]*memtable.MemTable(nil), imm...)
}

// removeTablesFromLevel filters remove out of every run in level
// levelIdx, dropping any run left with no tables.
func removeTablesFromLevel(v *version.Version, levelIdx int, remove []*version.Table) {
	l := v.Level(levelIdx)
	if l == nil {
		return
	}
	removeSet := make(map[*version.Table]bool, len(remove))
	for _, t := range remove {
		removeSet[t] = true
	}
	nl := &version.Level{}
	for _, run := range l.Runs {
		var kept []*version.Table
		for _, t := range run.Tables {
			if !removeSet[t] {
				kept = append(kept, t)
			}
		}
		if len(kept) > 0 {
			nl.Append(version.NewSortedRun(kept))
		}
	}
	v.Levels[levelIdx] = nl
}

// removeRun drops run from level levelIdx entirely.
func removeRun(v *version.Version, levelIdx int, run *version.SortedRun) {
	l := v.Level(levelIdx)
	if l == nil {
		return
	}
	nl := &version.Level{}
	for _, r := range l.Runs {
		if r != run {
			nl.Append(r)
		}
	}
	v.Levels[levelIdx] = nl
}
