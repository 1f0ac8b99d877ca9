package sstable

import (
	"fmt"
	"sort"

	"github.com/Megumi-X/wing/internal/block"
	"github.com/Megumi-X/wing/internal/dbformat"
	"github.com/Megumi-X/wing/internal/encoding"
	"github.com/Megumi-X/wing/internal/filter"
)

// GetResult reports the outcome of a Reader.Get call.
type GetResult int

const (
	NotFound GetResult = iota
	Found
	Deleted
)

const trailerSize = 24

// Reader opens a finished SSTable file for point lookups and range
// iteration. Reference: spec.md §4.3 — "at open time reads the
// trailer to locate the index and bloom filter, loads and sorts the
// in-memory index by largest_key ... loads the bloom filter and
// boundary keys."
type Reader struct {
	r    blockReaderAt
	size int64

	index       []indexEntry
	bloom       *filter.Reader
	smallestKey dbformat.InternalKey
	largestKey  dbformat.InternalKey
	numRecords  uint64

	indexOffset uint64
	bloomOffset uint64
}

// Open reads the trailer and index sections of an SSTable file backed
// by r, whose total size is size.
func Open(r blockReaderAt, size int64) (*Reader, error) {
	if size < trailerSize {
		return nil, fmt.Errorf("sstable: file too small to contain a trailer")
	}
	trailer := make([]byte, trailerSize)
	if _, err := r.ReadAt(trailer, size-trailerSize); err != nil {
		return nil, fmt.Errorf("sstable: read trailer: %w", err)
	}
	indexOffset := encoding.DecodeFixed64(trailer[0:8])
	bloomOffset := encoding.DecodeFixed64(trailer[8:16])
	numRecords := encoding.DecodeFixed64(trailer[16:24])

	rd := &Reader{r: r, size: size, numRecords: numRecords, indexOffset: indexOffset, bloomOffset: bloomOffset}

	index, err := readIndex(r, indexOffset, bloomOffset)
	if err != nil {
		return nil, err
	}
	// Tolerate out-of-order writers: sort by largest_key.
	sort.Slice(index, func(i, j int) bool {
		return dbformat.Compare(index[i].largestKey, index[j].largestKey) < 0
	})
	rd.index = index

	cursor := int64(bloomOffset)
	bloomBytes, next, err := readLenPrefixed(r, cursor)
	if err != nil {
		return nil, err
	}
	cursor = next
	if len(bloomBytes) > 0 {
		rd.bloom = filter.NewReader(bloomBytes)
	}

	largestBytes, next, err := readLenPrefixed(r, cursor)
	if err != nil {
		return nil, err
	}
	cursor = next
	rd.largestKey = dbformat.InternalKey(largestBytes)

	smallestBytes, _, err := readLenPrefixed(r, cursor)
	if err != nil {
		return nil, err
	}
	rd.smallestKey = dbformat.InternalKey(smallestBytes)

	return rd, nil
}

func readLenPrefixed(r blockReaderAt, offset int64) ([]byte, int64, error) {
	lenBuf := make([]byte, 8)
	if _, err := r.ReadAt(lenBuf, offset); err != nil {
		return nil, 0, fmt.Errorf("sstable: read length prefix at %d: %w", offset, err)
	}
	n := encoding.DecodeFixed64(lenBuf)
	if n == 0 {
		return nil, offset + 8, nil
	}
	data := make([]byte, n)
	if _, err := r.ReadAt(data, offset+8); err != nil {
		return nil, 0, fmt.Errorf("sstable: read %d bytes at %d: %w", n, offset+8, err)
	}
	return data, offset + 8 + int64(n), nil
}

// readIndex reads the block-count, offset array, and entries of the
// index region starting at indexOffset and ending at end.
func readIndex(r blockReaderAt, indexOffset, end uint64) ([]indexEntry, error) {
	countBuf := make([]byte, 8)
	if _, err := r.ReadAt(countBuf, int64(indexOffset)); err != nil {
		return nil, fmt.Errorf("sstable: read index block count: %w", err)
	}
	n := encoding.DecodeFixed64(countBuf)

	offsetsBuf := make([]byte, 8*(n+1))
	if _, err := r.ReadAt(offsetsBuf, int64(indexOffset)+8); err != nil {
		return nil, fmt.Errorf("sstable: read index offset array: %w", err)
	}
	offsets := make([]uint64, n+1)
	for i := range offsets {
		offsets[i] = encoding.DecodeFixed64(offsetsBuf[i*8 : i*8+8])
	}

	entriesBase := int64(indexOffset) + 8 + int64(len(offsetsBuf))
	entriesLen := offsets[n]
	entriesBuf := make([]byte, entriesLen)
	if entriesLen > 0 {
		if _, err := r.ReadAt(entriesBuf, entriesBase); err != nil {
			return nil, fmt.Errorf("sstable: read index entries: %w", err)
		}
	}

	index := make([]indexEntry, n)
	for i := uint64(0); i < n; i++ {
		start, stop := offsets[i], offsets[i+1]
		entry := entriesBuf[start:stop]
		keyLen := len(entry) - block.HandleEncodedSize
		index[i] = indexEntry{
			largestKey: dbformat.InternalKey(append([]byte(nil), entry[:keyLen]...)),
			handle:     block.DecodeHandle(entry[keyLen:]),
		}
	}
	return index, nil
}

// SmallestKey and LargestKey return the table's boundary internal keys.
func (rd *Reader) SmallestKey() dbformat.InternalKey { return rd.smallestKey }
func (rd *Reader) LargestKey() dbformat.InternalKey  { return rd.largestKey }

// NumRecords returns the total record count stored in the trailer.
func (rd *Reader) NumRecords() uint64 { return rd.numRecords }

// IndexOffset and BloomFilterOffset return the trailer-recorded section
// offsets. They are persisted in the metadata file (spec.md §6), but on
// reopen they are re-derived from each SSTable's own trailer.
func (rd *Reader) IndexOffset() uint64      { return rd.indexOffset }
func (rd *Reader) BloomFilterOffset() uint64 { return rd.bloomOffset }

// Get implements spec.md §4.3's Reader.Get: bloom-filter short-circuit,
// binary search over the block index by largest_key, then a linear
// scan of the winning block for the first matching user key.
func (rd *Reader) Get(userKey []byte, seq uint64) ([]byte, GetResult, error) {
	if rd.bloom != nil && !rd.bloom.MayContain(userKey) {
		return nil, NotFound, nil
	}

	target := dbformat.LookupKey(userKey, seq)
	idx := sort.Search(len(rd.index), func(i int) bool {
		return dbformat.Compare(rd.index[i].largestKey, target) >= 0
	})
	if idx == len(rd.index) {
		return nil, NotFound, nil
	}

	raw, handle, err := readBlock(rd.r, rd.index[idx].handle)
	if err != nil {
		return nil, NotFound, err
	}
	it := block.NewIterator(raw, handle)
	it.Seek(userKey, seq)
	if it.Valid() && string(it.Key().UserKey()) == string(userKey) {
		if it.Key().Type() == dbformat.TypeDeletion {
			return nil, Deleted, nil
		}
		return it.Value(), Found, nil
	}
	return nil, NotFound, nil
}

// NewIterator returns an iterator over every record in the table, in
// ascending internal-key order.
func (rd *Reader) NewIterator() *Iterator {
	return &Iterator{reader: rd}
}
