// Package flush drains an immutable memtable into one or more new L0
// SSTables.
//
// Reference: aalhour/rockyardkv internal/flush/job.go for the package
// shape and original_source's storage/lsm/lsm.cpp DBImpl::FlushThread,
// which builds a CompactionJob over the memtable's iterator rather than
// writing a single bare SSTable — carried here unchanged, so a flush
// rolls a new output file at sst_file_size and dedupes per-key versions
// exactly the way a compaction does (spec.md §4.9: "run one
// CompactionJob per memtable, each producing an L0 sorted run").
package flush

import (
	"errors"

	"github.com/Megumi-X/wing/internal/compaction"
	"github.com/Megumi-X/wing/internal/memtable"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/internal/version"
	"github.com/Megumi-X/wing/vfs"
)

// ErrEmptyMemTable is returned when a flush is attempted on a memtable
// with no entries; the caller should simply drop the memtable instead
// of installing anything.
var ErrEmptyMemTable = errors.New("flush: memtable is empty")

// Job drains one immutable memtable into one or more new L0 SSTables
// via the same internal/compaction.Job a compaction uses.
type Job struct {
	job *compaction.Job
}

// NewJob builds a Job from the database's file-size and block options.
func NewJob(fs vfs.FS, dbPath string, sstFileSize uint64, builderOpts sstable.BuilderOptions) *Job {
	return &Job{job: compaction.NewJob(fs, dbPath, sstFileSize, builderOpts)}
}

// Run flushes mem to one or more new, reference-counted SSTables, each
// owned by the caller with an initial refcount of one, ready to be
// appended into L0 (spec.md §4.9).
func (j *Job) Run(mem *memtable.MemTable) ([]*version.Table, error) {
	outputs, err := j.job.Run(mem.NewIterator())
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, ErrEmptyMemTable
	}
	return outputs, nil
}
