package sstable

import (
	"fmt"

	"github.com/Megumi-X/wing/internal/block"
	"github.com/Megumi-X/wing/internal/compression"
	"github.com/Megumi-X/wing/internal/dbformat"
	"github.com/Megumi-X/wing/internal/encoding"
	"github.com/Megumi-X/wing/internal/filter"
)

// indexEntry pairs a data block's largest internal key with its
// on-disk handle, per spec.md §3's "block-index section".
type indexEntry struct {
	largestKey dbformat.InternalKey
	handle     block.Handle
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	BlockSize       int
	BloomBitsPerKey int
	Compression     compression.Type
}

// DefaultBuilderOptions mirrors the database's DefaultOptions for the
// fields a standalone SSTable builder needs.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		BlockSize:       block.DefaultBlockSize,
		BloomBitsPerKey: 10,
		Compression:     compression.None,
	}
}

// Builder writes one SSTable file, following spec.md §4.3: each Add
// tries the current data block; on refusal the block is finalized, an
// index entry recorded, and the record re-appended to a fresh block.
type Builder struct {
	opts BuilderOptions
	w    *offsetWriter

	dataBlock     *block.Builder
	index         []indexEntry
	filterBuilder *filter.Builder

	smallestKey dbformat.InternalKey
	largestKey  dbformat.InternalKey

	numEntries uint64
	finished   bool
	err        error
}

// NewBuilder creates a Builder that writes to w.
func NewBuilder(w writerOnly, opts BuilderOptions) *Builder {
	if opts.BlockSize <= 0 {
		opts.BlockSize = block.DefaultBlockSize
	}
	b := &Builder{
		opts:      opts,
		w:         newOffsetWriter(w),
		dataBlock: block.NewBuilder(opts.BlockSize),
	}
	if opts.BloomBitsPerKey > 0 {
		b.filterBuilder = filter.NewBuilder(opts.BloomBitsPerKey)
	}
	return b
}

// Add appends a record. Keys must arrive in ascending internal-key
// order; callers (flush/compaction jobs) guarantee this since their
// input is already a merged, ordered stream.
func (b *Builder) Add(key dbformat.InternalKey, value []byte) error {
	if b.finished {
		return fmt.Errorf("sstable: builder already finished")
	}
	if b.err != nil {
		return b.err
	}

	if !b.dataBlock.Append(key, value) {
		if err := b.flushDataBlock(); err != nil {
			b.err = err
			return err
		}
		if !b.dataBlock.Append(key, value) {
			err := fmt.Errorf("sstable: record too large for an empty block")
			b.err = err
			return err
		}
	}

	if b.numEntries == 0 {
		b.smallestKey = append(dbformat.InternalKey(nil), key...)
	}
	b.largestKey = append(dbformat.InternalKey(nil), key...)
	b.numEntries++

	if b.filterBuilder != nil {
		b.filterBuilder.AddKey(key.UserKey())
	}
	return nil
}

func (b *Builder) flushDataBlock() error {
	if b.dataBlock.Empty() {
		return nil
	}
	offset := b.w.Offset()
	raw := b.dataBlock.Finish()
	count := uint64(b.dataBlock.Count())
	largest := append(dbformat.InternalKey(nil), b.dataBlock.LargestKey()...)

	if err := writeBlockWithTrailer(b.w, raw, b.opts.Compression); err != nil {
		return err
	}
	onDiskSize := b.w.Offset() - offset

	b.index = append(b.index, indexEntry{
		largestKey: largest,
		handle:     block.Handle{Offset: offset, Size: onDiskSize, Count: count},
	})
	b.dataBlock.Reset()
	return nil
}

// NumEntries returns the number of records added so far.
func (b *Builder) NumEntries() uint64 { return b.numEntries }

// Empty reports whether no records have been added.
func (b *Builder) Empty() bool { return b.numEntries == 0 }

// FileSize returns the number of bytes written so far.
func (b *Builder) FileSize() uint64 { return b.w.Offset() }

// Finish flushes the last block, then writes the block index, bloom
// filter, boundary keys, and trailer, following the exact layout in
// spec.md §6.
func (b *Builder) Finish() error {
	if b.finished {
		return fmt.Errorf("sstable: builder already finished")
	}
	if b.err != nil {
		return b.err
	}
	b.finished = true

	if err := b.flushDataBlock(); err != nil {
		return err
	}

	indexOffset := b.w.Offset()
	if err := b.writeIndex(); err != nil {
		return err
	}

	bloomOffset := b.w.Offset()
	var bloomBytes []byte
	if b.filterBuilder != nil {
		bloomBytes = b.filterBuilder.Finish()
	}
	if err := b.writeLenPrefixed(bloomBytes); err != nil {
		return err
	}
	if err := b.writeLenPrefixed(b.largestKey); err != nil {
		return err
	}
	if err := b.writeLenPrefixed(b.smallestKey); err != nil {
		return err
	}

	trailer := make([]byte, 24)
	encoding.PutFixed64(trailer[0:8], indexOffset)
	encoding.PutFixed64(trailer[8:16], bloomOffset)
	encoding.PutFixed64(trailer[16:24], b.numEntries)
	_, err := b.w.Write(trailer)
	return err
}

func (b *Builder) writeLenPrefixed(data []byte) error {
	var lenBuf [8]byte
	encoding.PutFixed64(lenBuf[:], uint64(len(data)))
	if _, err := b.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := b.w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// writeIndex writes the block_count, the N+1 entry-offset array, then
// the entries themselves (largest_key_bytes | BlockHandle), per
// spec.md §6.
func (b *Builder) writeIndex() error {
	n := len(b.index)
	var countBuf [8]byte
	encoding.PutFixed64(countBuf[:], uint64(n))
	if _, err := b.w.Write(countBuf[:]); err != nil {
		return err
	}

	offsets := make([]uint64, n+1)
	running := uint64(0)
	for i, e := range b.index {
		offsets[i] = running
		running += uint64(len(e.largestKey)) + block.HandleEncodedSize
	}
	offsets[n] = running

	offBuf := make([]byte, 8*(n+1))
	for i, off := range offsets {
		encoding.PutFixed64(offBuf[i*8:i*8+8], off)
	}
	if _, err := b.w.Write(offBuf); err != nil {
		return err
	}

	for _, e := range b.index {
		if _, err := b.w.Write(e.largestKey); err != nil {
			return err
		}
		handleBuf := block.AppendHandle(nil, e.handle)
		if _, err := b.w.Write(handleBuf); err != nil {
			return err
		}
	}
	return nil
}
