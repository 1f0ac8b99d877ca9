package block

import "github.com/Megumi-X/wing/internal/encoding"

// DefaultBlockSize is the typical target block capacity (spec.md §3).
const DefaultBlockSize = 4096

// recordOverhead is the per-record offset entry appended to the block
// trailer; Append must account for it when checking capacity.
const recordOverhead = 8

// Builder accumulates records into a fixed-capacity block buffer.
//
// Append refuses (returns false, without mutating state) once the record
// plus its trailer offset entry would exceed the block's capacity,
// signalling the caller to finalize the block and start a new one. The
// first record of an empty block is always accepted, even if it alone
// exceeds the capacity.
type Builder struct {
	capacity   int
	buf        []byte
	offsets    []uint64
	largestKey []byte
	finished   bool
}

// NewBuilder creates a Builder with the given capacity in bytes.
func NewBuilder(capacity int) *Builder {
	if capacity <= 0 {
		capacity = DefaultBlockSize
	}
	return &Builder{capacity: capacity}
}

// Append tries to add (key, value) to the block. It returns false without
// mutating any state if doing so would exceed the block's capacity,
// unless the block is still empty, in which case the record is accepted.
// key is expected to already be a serialized internal key.
func (b *Builder) Append(key, value []byte) bool {
	recordSize := 8 + len(key) + 8 + len(value)
	newTotal := len(b.buf) + recordSize + (len(b.offsets)+1)*recordOverhead
	if newTotal > b.capacity && len(b.offsets) > 0 {
		return false
	}
	offset := uint64(len(b.buf))
	b.buf = encoding.AppendFixed64(b.buf, uint64(len(key)))
	b.buf = append(b.buf, key...)
	b.buf = encoding.AppendFixed64(b.buf, uint64(len(value)))
	b.buf = append(b.buf, value...)
	b.offsets = append(b.offsets, offset)

	if len(b.offsets) == 1 || greater(key, b.largestKey) {
		b.largestKey = append(b.largestKey[:0], key...)
	}
	return true
}

func greater(a, b []byte) bool {
	return compareBytes(a, b) > 0
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Count returns the number of records appended so far.
func (b *Builder) Count() int {
	return len(b.offsets)
}

// Size returns the size the block will occupy once Finish is called:
// the record bytes plus the trailing offset array.
func (b *Builder) Size() int {
	return len(b.buf) + len(b.offsets)*8
}

// LargestKey returns the largest internal key appended so far.
func (b *Builder) LargestKey() []byte {
	return b.largestKey
}

// Empty reports whether any record has been appended.
func (b *Builder) Empty() bool {
	return len(b.offsets) == 0
}

// Finish appends the offset array trailer and returns the finished block
// bytes. The returned slice is only valid until the next Reset.
func (b *Builder) Finish() []byte {
	for _, off := range b.offsets {
		b.buf = encoding.AppendFixed64(b.buf, off)
	}
	b.finished = true
	return b.buf
}

// Reset clears the builder so it can build the next block.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.offsets = b.offsets[:0]
	b.largestKey = b.largestKey[:0]
	b.finished = false
}
