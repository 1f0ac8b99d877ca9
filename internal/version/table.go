// Package version implements the sorted-run/level/Version hierarchy and
// the SuperVersion snapshot mechanism described in spec.md §3–§5:
// readers capture a SuperVersion and operate lock-free against a
// consistent tree state while writers install replacements.
//
// Reference: aalhour/rockyardkv internal/version/version.go for the
// reference-counted-handle shape (Ref/Unref, remove-on-last-unref),
// generalized here to the spec's sorted-run-per-level model instead of
// RocksDB's flat per-level file list, and to original_source's
// `sorted_run.hpp`/`version.hpp` for the Get/Append control flow.
package version

import (
	"sync/atomic"

	"github.com/Megumi-X/wing/internal/dbformat"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/vfs"
)

// Table is a reference-counted handle to one on-disk SSTable. A Table
// is shared by every SuperVersion whose version references it; its
// backing file is unlinked only when the last reference drops with
// RemoveTag set (spec.md §3, "SuperVersion" and "Lifecycle").
type Table struct {
	ID       uint64
	FileName string
	FileSize uint64
	Reader   *sstable.Reader

	fs   vfs.FS
	file vfs.RandomAccessFile

	refs      atomic.Int32
	removeTag atomic.Bool
}

// NewTable wraps an opened reader into a reference-counted Table with
// an initial reference count of one.
func NewTable(id uint64, fileName string, fileSize uint64, reader *sstable.Reader, fs vfs.FS, file vfs.RandomAccessFile) *Table {
	t := &Table{ID: id, FileName: fileName, FileSize: fileSize, Reader: reader, fs: fs, file: file}
	t.refs.Store(1)
	return t
}

// Ref increments the reference count.
func (t *Table) Ref() { t.refs.Add(1) }

// SetRemoveTag marks the table for deletion once its last reference
// drops. Used by compaction when a table is superseded.
func (t *Table) SetRemoveTag() { t.removeTag.Store(true) }

// Unref decrements the reference count. When it reaches zero and
// RemoveTag is set, the backing file is closed and unlinked.
func (t *Table) Unref() {
	if t.refs.Add(-1) != 0 {
		return
	}
	if t.file != nil {
		_ = t.file.Close()
	}
	if t.removeTag.Load() && t.fs != nil {
		_ = t.fs.Remove(t.FileName)
	}
}

// SmallestKey and LargestKey expose the table's boundary internal keys.
func (t *Table) SmallestKey() dbformat.InternalKey { return t.Reader.SmallestKey() }
func (t *Table) LargestKey() dbformat.InternalKey  { return t.Reader.LargestKey() }
