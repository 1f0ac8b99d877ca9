// Package block implements the fixed-capacity block format described in
// spec.md §4.2 and §6: a sequence of length-prefixed records followed by
// a trailing array of record offsets.
//
// Record layout: [key_len:u64 | key_bytes | value_len:u64 | value_bytes].
// Block layout:  record* | offset:u64 * count.
//
// Reference: original_source/.../storage/lsm/block.cpp (the authoritative
// semantics spec.md §4.2 describes) and aalhour/rockyardkv
// internal/block for Go package shape.
package block

import "github.com/Megumi-X/wing/internal/encoding"

// Handle locates a block within an SSTable file and records a size and
// its record count, mirroring spec.md §6's BlockHandle{offset, size,
// count}. In an SSTable's index, Size is the block's on-disk length,
// including its trailer.
type Handle struct {
	Offset uint64
	Size   uint64
	Count  uint64
}

// HandleEncodedSize is the on-disk size of a Handle.
const HandleEncodedSize = 24

// AppendHandle serializes h and appends it to dst.
func AppendHandle(dst []byte, h Handle) []byte {
	dst = encoding.AppendFixed64(dst, h.Offset)
	dst = encoding.AppendFixed64(dst, h.Size)
	dst = encoding.AppendFixed64(dst, h.Count)
	return dst
}

// DecodeHandle reads a Handle from the front of src.
func DecodeHandle(src []byte) Handle {
	return Handle{
		Offset: encoding.DecodeFixed64(src[0:8]),
		Size:   encoding.DecodeFixed64(src[8:16]),
		Count:  encoding.DecodeFixed64(src[16:24]),
	}
}
