package vfs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrNotExist is returned when a MemFS operation targets a missing file.
var ErrNotExist = errors.New("vfs: file does not exist")

// MemFS is an in-memory FS used by tests so storage tests never touch
// the real filesystem. Grounded on aalhour/rockyardkv's memory-backed
// vfs test double.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memFile
}

// NewMemFS creates an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string]*memFile)}
}

type memFile struct {
	data []byte
}

func (m *MemFS) Create(name string) (WritableFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &memFile{}
	m.files[name] = f
	return &memWritableFile{fs: m, name: name, file: f}, nil
}

func (m *MemFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[name]
	if !ok {
		return nil, ErrNotExist
	}
	return &memRandomAccessFile{file: f}, nil
}

func (m *MemFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return ErrNotExist
	}
	delete(m.files, name)
	return nil
}

func (m *MemFS) MkdirAll(string, os.FileMode) error { return nil }

func (m *MemFS) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func (m *MemFS) ListDir(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var names []string
	for name := range m.files {
		if strings.HasPrefix(name, prefix) {
			names = append(names, strings.TrimPrefix(name, prefix))
		}
	}
	return names, nil
}

type memWritableFile struct {
	fs   *MemFS
	name string
	file *memFile
}

func (w *memWritableFile) Write(p []byte) (int, error) {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.file.data = append(w.file.data, p...)
	return len(p), nil
}

func (w *memWritableFile) Close() error { return nil }
func (w *memWritableFile) Sync() error  { return nil }

type memRandomAccessFile struct {
	file *memFile
}

func (r *memRandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(r.file.data) {
		return 0, errors.New("vfs: read offset out of range")
	}
	n := copy(p, r.file.data[off:])
	if n < len(p) {
		return n, errors.New("vfs: short read")
	}
	return n, nil
}

func (r *memRandomAccessFile) Close() error { return nil }

func (r *memRandomAccessFile) Size() (int64, error) {
	return int64(len(r.file.data)), nil
}
