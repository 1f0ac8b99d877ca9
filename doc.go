// Package wing implements an embedded LSM-tree key-value storage engine:
// a memtable write buffer, block-based SSTables, a reference-counted
// Version/SuperVersion snapshot mechanism, and a choice of four
// compaction strategies (leveled, lazy leveling, fluid; tiered is
// refused at Open).
//
// Reference: aalhour/rockyardkv's root package for the facade shape
// (Options/Open/DB) and original_source's storage/lsm/lsm.cpp for the
// write_mutex/db_mutex/sv_mutex locking protocol this package
// implements in db.go.
package wing
