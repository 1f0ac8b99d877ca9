package wing

import "sync/atomic"

// stats holds the atomic counters backing DB.Stats. Trimmed from the
// teacher's statistics.go ticker enum to the subset meaningful for an
// engine with no query layer: bytes moved by flush and compaction, how
// many of each ran, and the current per-level file count.
type stats struct {
	bytesFlushed    atomic.Uint64
	bytesCompacted  atomic.Uint64
	flushCount      atomic.Uint64
	compactionCount atomic.Uint64
}

// Stats is a point-in-time snapshot of a database's activity counters.
type Stats struct {
	BytesFlushed    uint64
	BytesCompacted  uint64
	FlushCount      uint64
	CompactionCount uint64
	// LevelFileCounts[i] is the number of SSTables currently in level i,
	// computed from the live Version at the moment Stats was called.
	LevelFileCounts []int
}
