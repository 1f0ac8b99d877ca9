package vfs

import "testing"

func TestMemFSWriteReadRoundTrip(t *testing.T) {
	fs := NewMemFS()
	w, err := fs.Create("/db/000001.sst")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.Write([]byte("hello world")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()

	r, err := fs.OpenRandomAccess("/db/000001.sst")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := r.ReadAt(buf, 6); err != nil {
		t.Fatalf("read at: %v", err)
	}
	if string(buf) != "world" {
		t.Fatalf("expected 'world', got %q", buf)
	}
	sz, err := r.Size()
	if err != nil || sz != 11 {
		t.Fatalf("expected size 11, got %d (err=%v)", sz, err)
	}
}

func TestMemFSRemoveAndExists(t *testing.T) {
	fs := NewMemFS()
	_, _ = fs.Create("/a")
	if !fs.Exists("/a") {
		t.Fatalf("expected /a to exist")
	}
	if err := fs.Remove("/a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if fs.Exists("/a") {
		t.Fatalf("expected /a to be gone after remove")
	}
	if err := fs.Remove("/a"); err == nil {
		t.Fatalf("expected error removing a missing file")
	}
}
