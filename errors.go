package wing

import "errors"

// Error taxonomy per spec.md §7: I/O and format errors are fatal and
// surface upward through whichever call triggered them; not-found and
// tombstone outcomes are normal results, not errors.
var (
	// ErrNotFound is returned by Get when a key has no visible value.
	ErrNotFound = errors.New("wing: key not found")
	// ErrDBClosed is returned by any operation after Close has run.
	ErrDBClosed = errors.New("wing: database is closed")
	// ErrDBExists is returned by Open when CreateNew is true and a
	// database already exists at the configured path.
	ErrDBExists = errors.New("wing: database already exists")
	// ErrDBNotFound is returned by Open when CreateNew is false and no
	// database exists at the configured path.
	ErrDBNotFound = errors.New("wing: no database at the configured path")
	// ErrCorruption is returned when a metadata or SSTable file fails
	// its format checks at open time.
	ErrCorruption = errors.New("wing: corruption detected")
)

// FatalHandler is invoked by the background flush and compaction
// workers when they hit an unrecoverable I/O error (spec.md §7: "log
// and terminate the process on fatal I/O"). After the handler returns,
// the database records the error and later writes return it. The
// default handler only logs; callers that want the process to actually
// exit should set Options.OnFatalError to something that does.
type FatalHandler func(source string, err error)
