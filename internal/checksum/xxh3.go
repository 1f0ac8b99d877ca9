// Package checksum provides the hash primitive shared by the bloom
// filter and the per-block trailer checksum.
//
// Reference: aalhour/rockyardkv internal/checksum (same role); this
// package uses the real github.com/zeebo/xxh3 library rather than the
// teacher's hand-rolled XXH3 reimplementation.
package checksum

import "github.com/zeebo/xxh3"

// Sum64 returns the 64-bit XXH3 hash of data.
func Sum64(data []byte) uint64 {
	return xxh3.Hash(data)
}
