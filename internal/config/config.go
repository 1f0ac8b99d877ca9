// Package config loads database options from an on-disk TOML file,
// mirroring the way the teacher reads an OPTIONS file at open time
// (aalhour/rockyardkv internal/options/file.go) but using a standard
// structured format instead of hand-rolled key=value line parsing.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// FileOptions mirrors every field spec.md §6 enumerates under
// "Configuration". It is decoded independently of the root package's
// Options struct to avoid an import cycle (internal/config cannot
// import the root package, which itself calls into internal/config);
// the root package's LoadOptions merges a FileOptions into a base
// Options built from DefaultOptions().
type FileOptions struct {
	CreateNew               bool    `toml:"create_new"`
	DBPath                  string  `toml:"db_path"`
	BlockSize               uint64  `toml:"block_size"`
	SSTFileSize             uint64  `toml:"sst_file_size"`
	WriteBufferSize         uint64  `toml:"write_buffer_size"`
	BloomBitsPerKey         uint64  `toml:"bloom_bits_per_key"`
	CompactionSizeRatio     float64 `toml:"compaction_size_ratio"`
	Level0CompactionTrigger uint64  `toml:"level0_compaction_trigger"`
	Level0StopWritesTrigger uint64  `toml:"level0_stop_writes_trigger"`
	MaxImmutableCount       uint64  `toml:"max_immutable_count"`
	CompactionStrategyName  string  `toml:"compaction_strategy_name"`
	UseDirectIO             bool    `toml:"use_direct_io"`
	TargetAlphaPart3        float64 `toml:"target_alpha_part3"`
	TargetScanLengthPart3   uint64  `toml:"target_scan_length_part3"`
	Compression             string  `toml:"compression"`
}

// Load decodes path as a TOML options file. Fields absent from the
// file decode to their Go zero value; LoadOptions in the root package
// treats a zero value as "use the default" for every field where zero
// is not itself a meaningful setting.
func Load(path string) (*FileOptions, error) {
	var fo FileOptions
	if _, err := toml.DecodeFile(path, &fo); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &fo, nil
}
