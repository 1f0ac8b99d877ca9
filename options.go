package wing

import (
	"fmt"

	"github.com/Megumi-X/wing/internal/compaction"
	"github.com/Megumi-X/wing/internal/compression"
	"github.com/Megumi-X/wing/internal/config"
	"github.com/Megumi-X/wing/internal/logging"
	"github.com/Megumi-X/wing/vfs"
)

// CompactionStrategy names one of the four strategies spec.md §4.7
// describes. CompactionTiered is accepted as a configuration value but
// rejected by Open, matching the picker package's own refusal.
type CompactionStrategy = compaction.Strategy

const (
	CompactionLeveled      = compaction.StrategyLeveled
	CompactionLazyLeveling = compaction.StrategyLazyLeveling
	CompactionFluid        = compaction.StrategyFluid
	CompactionTiered       = compaction.StrategyTiered
)

// CompressionType selects the per-block codec applied to persisted
// SSTable blocks (SPEC_FULL.md §B).
type CompressionType = compression.Type

const (
	CompressionNone   = compression.None
	CompressionSnappy = compression.Snappy
	CompressionLZ4    = compression.LZ4
	CompressionZstd   = compression.Zstd
)

// Options configures Open. Every field corresponds to one entry in
// spec.md §6's "Configuration" list, plus the compression knob
// SPEC_FULL.md §B adds and the FS/Logger/OnFatalError seams needed to
// run against an in-memory filesystem in tests and to observe
// background-worker failures.
type Options struct {
	// CreateNew selects a fresh tree (true) or loading an existing one
	// from its metadata file (false).
	CreateNew bool
	// DBPath is the directory holding the metadata file and every
	// SSTable.
	DBPath string
	// BlockSize is the approximate uncompressed size of one data block.
	BlockSize uint64
	// SSTFileSize is the soft target size of one SSTable produced by
	// flush or compaction.
	SSTFileSize uint64
	// WriteBufferSize is the approximate memtable size, in bytes, that
	// triggers sealing it into the immutable queue.
	WriteBufferSize uint64
	// BloomBitsPerKey sizes each SSTable's bloom filter. Zero disables
	// bloom filters.
	BloomBitsPerKey uint64
	// CompactionSizeRatio is the per-level size multiplier (leveled) and
	// the run-count threshold (lazy-leveling); under fluid it scales the
	// last level's size threshold, while per-level fan-outs start at 2.
	CompactionSizeRatio float64
	// Level0CompactionTrigger is the number of L0 runs that triggers an
	// L0-to-L1 compaction under the leveled strategy.
	Level0CompactionTrigger uint64
	// Level0StopWritesTrigger is the number of L0 runs at which writers
	// stall until compaction catches up.
	Level0StopWritesTrigger uint64
	// MaxImmutableCount is the number of sealed memtables allowed to
	// queue before writers stall waiting for the flush worker.
	MaxImmutableCount uint64
	// CompactionStrategy selects the picker.
	CompactionStrategy CompactionStrategy
	// UseDirectIO requests uncached I/O for flush/compaction writes.
	// The OS filesystem backend (vfs.OSFS) does not implement O_DIRECT;
	// this flag is accepted for configuration-file compatibility but is
	// currently a no-op, documented in DESIGN.md.
	UseDirectIO bool
	// TargetAlphaPart3 and TargetScanLengthPart3 are loaded from the
	// options file and kept here, but they are not passed to any
	// compaction picker; no strategy, fluid included, reads them.
	TargetAlphaPart3     float64
	TargetScanLengthPart3 uint64
	// Compression selects the codec applied to new SSTable blocks.
	Compression CompressionType

	// FS is the filesystem implementation to use. Defaults to the real
	// OS filesystem.
	FS vfs.FS
	// Logger receives background-worker and lifecycle messages.
	// Defaults to a stderr logger at LevelInfo.
	Logger logging.Logger
	// OnFatalError is invoked by a background worker that hits an
	// unrecoverable I/O error (spec.md §7), before the database records
	// the error; later writes then return it. Defaults to logging only.
	OnFatalError FatalHandler
}

// DefaultOptions returns the configuration a freshly created database
// opens with absent an options file: 4 KiB blocks, 10 bits/key bloom
// filters, leveled compaction with a 10x per-level size ratio, an L0
// compaction trigger of 4 and stop-writes trigger of 12, and up to 4
// queued immutable memtables.
func DefaultOptions() Options {
	return Options{
		CreateNew:               true,
		DBPath:                  ".",
		BlockSize:               4096,
		SSTFileSize:             64 << 20,
		WriteBufferSize:         4 << 20,
		BloomBitsPerKey:         10,
		CompactionSizeRatio:     10,
		Level0CompactionTrigger: 4,
		Level0StopWritesTrigger: 12,
		MaxImmutableCount:       4,
		CompactionStrategy:      CompactionLeveled,
		Compression:             CompressionNone,
	}
}

// LoadOptions builds an Options by overlaying a TOML options file (read
// via internal/config) onto DefaultOptions. Fields absent from the file
// (the Go zero value after decoding) fall back to the default except
// for CreateNew and UseDirectIO, where false is itself a meaningful
// setting rather than "omitted".
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	fo, err := config.Load(path)
	if err != nil {
		return Options{}, err
	}

	opts.CreateNew = fo.CreateNew
	opts.UseDirectIO = fo.UseDirectIO
	if fo.DBPath != "" {
		opts.DBPath = fo.DBPath
	}
	if fo.BlockSize != 0 {
		opts.BlockSize = fo.BlockSize
	}
	if fo.SSTFileSize != 0 {
		opts.SSTFileSize = fo.SSTFileSize
	}
	if fo.WriteBufferSize != 0 {
		opts.WriteBufferSize = fo.WriteBufferSize
	}
	if fo.BloomBitsPerKey != 0 {
		opts.BloomBitsPerKey = fo.BloomBitsPerKey
	}
	if fo.CompactionSizeRatio != 0 {
		opts.CompactionSizeRatio = fo.CompactionSizeRatio
	}
	if fo.Level0CompactionTrigger != 0 {
		opts.Level0CompactionTrigger = fo.Level0CompactionTrigger
	}
	if fo.Level0StopWritesTrigger != 0 {
		opts.Level0StopWritesTrigger = fo.Level0StopWritesTrigger
	}
	if fo.MaxImmutableCount != 0 {
		opts.MaxImmutableCount = fo.MaxImmutableCount
	}
	if fo.CompactionStrategyName != "" {
		opts.CompactionStrategy = CompactionStrategy(fo.CompactionStrategyName)
	}
	opts.TargetAlphaPart3 = fo.TargetAlphaPart3
	if fo.TargetScanLengthPart3 != 0 {
		opts.TargetScanLengthPart3 = fo.TargetScanLengthPart3
	}
	if fo.Compression != "" {
		ct, err := parseCompression(fo.Compression)
		if err != nil {
			return Options{}, err
		}
		opts.Compression = ct
	}

	return opts, nil
}

func parseCompression(name string) (CompressionType, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return CompressionNone, fmt.Errorf("wing: unknown compression %q", name)
	}
}
