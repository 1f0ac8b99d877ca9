// Package compression provides optional per-block compression for
// persisted SSTable blocks (SPEC_FULL.md §B). The distilled spec's block
// layout is uncompressed; this package implements the additive on-disk
// trailer that lets a block be stored compressed while block.Builder and
// block.Iterator keep operating on plain bytes.
//
// Reference: aalhour/rockyardkv internal/compression/compression.go,
// trimmed to the codecs this engine wires (snappy, lz4, zstd) — zlib and
// bzip2 existed there only for RocksDB bit-compatibility, a goal this
// engine does not share.
package compression

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies the compression codec applied to a persisted block.
type Type uint8

const (
	// None stores the block verbatim.
	None Type = 0
	// Snappy compresses with Google Snappy.
	Snappy Type = 1
	// LZ4 compresses with LZ4.
	LZ4 Type = 2
	// Zstd compresses with Zstandard.
	Zstd Type = 3
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Snappy:
		return "Snappy"
	case LZ4:
		return "LZ4"
	case Zstd:
		return "Zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

var zstdEncoder *zstd.Encoder
var zstdDecoder *zstd.Decoder

func init() {
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
}

// Compress compresses data with the given codec.
func Compress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil
	case Snappy:
		return snappy.Encode(nil, data), nil
	case LZ4:
		var buf []byte
		n := lz4.CompressBlockBound(len(data))
		buf = make([]byte, n)
		var c lz4.Compressor
		sz, err := c.CompressBlock(data, buf)
		if err != nil {
			return nil, fmt.Errorf("compression: lz4 compress: %w", err)
		}
		if sz == 0 {
			// Incompressible input: lz4 signals this by writing nothing.
			return append([]byte{0}, data...), nil
		}
		return append([]byte{1}, buf[:sz]...), nil
	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("compression: unknown type %v", t)
	}
}

// Decompress decompresses data that was compressed with the given codec.
// originalSize must be the exact uncompressed length (recorded alongside
// the block handle) since raw LZ4 blocks carry no embedded size.
func Decompress(t Type, data []byte, originalSize int) ([]byte, error) {
	switch t {
	case None:
		return data, nil
	case Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("compression: snappy decompress: %w", err)
		}
		return out, nil
	case LZ4:
		if len(data) == 0 {
			return nil, fmt.Errorf("compression: lz4 payload empty")
		}
		if data[0] == 0 {
			return data[1:], nil
		}
		out := make([]byte, originalSize)
		n, err := lz4.UncompressBlock(data[1:], out)
		if err != nil {
			return nil, fmt.Errorf("compression: lz4 decompress: %w", err)
		}
		return out[:n], nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, originalSize))
		if err != nil {
			return nil, fmt.Errorf("compression: zstd decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compression: unknown type %v", t)
	}
}
