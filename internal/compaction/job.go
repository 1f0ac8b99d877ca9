package compaction

import (
	"bytes"
	"fmt"
	"path/filepath"

	wingiter "github.com/Megumi-X/wing/internal/iterator"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/internal/version"
	"github.com/Megumi-X/wing/vfs"
)

// Job carries out a picked Compaction: it drains a merged iterator
// over the input tables into one or more new SSTables, splitting
// whenever the current output approaches TargetFileSize.
//
// Reference: original_source's storage/lsm/compaction_job.hpp
// (CompactionJob::Run): skip a record whose user key matches the
// previous output record's user key at a lower sequence number — since
// the merged stream yields newest-first for a given user key, this
// keeps exactly the newest surviving version and drops the rest.
type Job struct {
	FS              vfs.FS
	DBPath          string
	TargetFileSize  uint64
	BlockSize       int
	BloomBitsPerKey int
	Compression     sstable.BuilderOptions
}

// NewJob builds a Job from the database's block/file-size options.
func NewJob(fs vfs.FS, dbPath string, targetFileSize uint64, builderOpts sstable.BuilderOptions) *Job {
	return &Job{
		FS:             fs,
		DBPath:         dbPath,
		TargetFileSize: targetFileSize,
		Compression:    builderOpts,
	}
}

// Run positions it with SeekToFirst and drains it into
// a sequence of new, reference-counted Tables with an initial refcount
// of one each, owned by the caller.
func (j *Job) Run(it wingiter.Iterator) ([]*version.Table, error) {
	var outputs []*version.Table

	cur, fileID, fileName, err := j.newBuilder()
	if err != nil {
		return nil, err
	}

	var lastUserKey []byte
	haveLast := false
	var lastSeq uint64

	flush := func() error {
		if cur.Empty() {
			return nil
		}
		if err := cur.Finish(); err != nil {
			return err
		}
		table, err := j.openOutput(fileID, fileName)
		if err != nil {
			return err
		}
		outputs = append(outputs, table)
		return nil
	}

	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := it.Key()
		userKey := key.UserKey()
		seq := key.Seq()
		if haveLast && bytes.Equal(userKey, lastUserKey) && seq < lastSeq {
			continue
		}

		if !cur.Empty() && cur.FileSize()+estimatedRecordSize(key, it.Value()) > j.TargetFileSize {
			if err := flush(); err != nil {
				return nil, err
			}
			cur, fileID, fileName, err = j.newBuilder()
			if err != nil {
				return nil, err
			}
		}

		if err := cur.Add(key, it.Value()); err != nil {
			return nil, err
		}
		lastUserKey = append(lastUserKey[:0], userKey...)
		lastSeq = seq
		haveLast = true
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (j *Job) newBuilder() (*sstable.Builder, uint64, string, error) {
	id := sstable.NextFileID()
	name := filepath.Join(j.DBPath, sstable.FileName(id))
	w, err := j.FS.Create(name)
	if err != nil {
		return nil, 0, "", fmt.Errorf("compaction: create %s: %w", name, err)
	}
	return sstable.NewBuilder(w, j.Compression), id, name, nil
}

func (j *Job) openOutput(id uint64, name string) (*version.Table, error) {
	raf, err := j.FS.OpenRandomAccess(name)
	if err != nil {
		return nil, fmt.Errorf("compaction: reopen %s: %w", name, err)
	}
	size, err := raf.Size()
	if err != nil {
		return nil, err
	}
	reader, err := sstable.Open(raf, size)
	if err != nil {
		return nil, err
	}
	return version.NewTable(id, name, uint64(size), reader, j.FS, raf), nil
}

// estimatedRecordSize approximates the on-disk growth one record adds,
// matching compaction_job.hpp's append_size check (key + value sizes
// plus framing) closely enough to decide when to roll a new file; it
// does not need to be exact since TargetFileSize is a soft target.
func estimatedRecordSize(key []byte, value []byte) uint64 {
	return uint64(len(key)) + uint64(len(value)) + 24
}
