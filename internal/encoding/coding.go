// Package encoding provides the little-endian fixed-width encoding used
// by the on-disk block, SSTable, and metadata file formats (spec.md §6).
//
// Reference: aalhour/rockyardkv internal/encoding/coding.go, trimmed to
// the fixed-width subset this engine's wire format actually uses.
package encoding

import "encoding/binary"

// AppendFixed32 appends a little-endian uint32 to dst.
func AppendFixed32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendFixed64 appends a little-endian uint64 to dst.
func AppendFixed64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// DecodeFixed32 decodes a little-endian uint32 from the front of src.
func DecodeFixed32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// DecodeFixed64 decodes a little-endian uint64 from the front of src.
func DecodeFixed64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

// PutFixed64 writes a little-endian uint64 into dst[0:8].
// REQUIRES: len(dst) >= 8.
func PutFixed64(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}
