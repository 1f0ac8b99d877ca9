// Package vfs provides a small virtual filesystem abstraction so the
// storage engine can run against the real OS filesystem in production
// and an in-memory filesystem in tests, without touching disk.
//
// Reference: aalhour/rockyardkv internal/vfs, trimmed to the operations
// this engine actually calls — no direct I/O, no fault injection, since
// those exist in the teacher to support crash-test tooling this spec
// does not build.
package vfs

import (
	"io"
	"os"
)

// FS is the filesystem interface the storage engine depends on.
type FS interface {
	Create(name string) (WritableFile, error)
	OpenRandomAccess(name string) (RandomAccessFile, error)
	Remove(name string) error
	MkdirAll(name string, perm os.FileMode) error
	Exists(name string) bool
	ListDir(dir string) ([]string, error)
}

// WritableFile is a sequentially-written, appendable file.
type WritableFile interface {
	io.Writer
	io.Closer
	Sync() error
}

// RandomAccessFile supports reads at arbitrary offsets.
type RandomAccessFile interface {
	io.ReaderAt
	io.Closer
	Size() (int64, error)
}

// OSFS is the real operating-system filesystem.
type OSFS struct{}

// NewOSFS returns the real OS filesystem implementation.
func NewOSFS() *OSFS { return &OSFS{} }

func (OSFS) Create(name string) (WritableFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osWritableFile{f}, nil
}

func (OSFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &osRandomAccessFile{f}, nil
}

func (OSFS) Remove(name string) error { return os.Remove(name) }

func (OSFS) MkdirAll(name string, perm os.FileMode) error { return os.MkdirAll(name, perm) }

func (OSFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (OSFS) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

type osWritableFile struct{ f *os.File }

func (w *osWritableFile) Write(p []byte) (int, error) { return w.f.Write(p) }
func (w *osWritableFile) Close() error                { return w.f.Close() }
func (w *osWritableFile) Sync() error                 { return w.f.Sync() }

type osRandomAccessFile struct{ f *os.File }

func (r *osRandomAccessFile) ReadAt(p []byte, off int64) (int, error) { return r.f.ReadAt(p, off) }
func (r *osRandomAccessFile) Close() error                            { return r.f.Close() }
func (r *osRandomAccessFile) Size() (int64, error) {
	fi, err := r.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
