package wing

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/Megumi-X/wing/internal/encoding"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/internal/version"
	"github.com/Megumi-X/wing/vfs"
)

// metadataFileName is the clean-shutdown checkpoint spec.md §6
// describes: "written on clean shutdown, read on open when
// create_new=false". This engine has no write-ahead log (spec.md §1
// Non-goals), so this file is the only thing that lets Open resume an
// existing tree instead of starting empty.
const metadataFileName = "CURRENT.meta"

func metadataPath(dbPath string) string {
	return filepath.Join(dbPath, metadataFileName)
}

// writeMetadata persists current_seq, next_file_id, and every level's
// sorted runs and SSTables in the exact field order spec.md §6
// specifies.
func writeMetadata(fs vfs.FS, dbPath string, seq, nextFileID uint64, v *version.Version) error {
	var buf []byte
	buf = encoding.AppendFixed64(buf, seq)
	buf = encoding.AppendFixed64(buf, nextFileID)
	buf = encoding.AppendFixed64(buf, uint64(len(v.Levels)))
	for levelID, l := range v.Levels {
		buf = encoding.AppendFixed64(buf, uint64(levelID))
		buf = encoding.AppendFixed64(buf, uint64(len(l.Runs)))
		for _, run := range l.Runs {
			buf = encoding.AppendFixed64(buf, uint64(len(run.Tables)))
			for _, t := range run.Tables {
				buf = encoding.AppendFixed64(buf, t.Reader.NumRecords())
				buf = encoding.AppendFixed64(buf, t.FileSize)
				buf = encoding.AppendFixed64(buf, t.ID)
				buf = encoding.AppendFixed64(buf, t.Reader.IndexOffset())
				buf = encoding.AppendFixed64(buf, t.Reader.BloomFilterOffset())
				name := filepath.Base(t.FileName)
				buf = encoding.AppendFixed64(buf, uint64(len(name)))
				buf = append(buf, name...)
			}
		}
	}

	w, err := fs.Create(metadataPath(dbPath))
	if err != nil {
		return fmt.Errorf("wing: create metadata file: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		_ = w.Close()
		return fmt.Errorf("wing: write metadata: %w", err)
	}
	if err := w.Sync(); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// readMetadata parses the file writeMetadata produces and reopens every
// referenced SSTable, rebuilding seq, the next file ID, and the
// Version. The persisted count/size/index_offset/bloom_filter_offset
// fields are not trusted blindly: sstable.Open re-derives them from
// each file's own trailer, so a truncated or corrupted SSTable is still
// caught here rather than silently believed (spec.md §7, "Format errors
// at SSTable open — fatal").
func readMetadata(fs vfs.FS, dbPath string) (seq, nextFileID uint64, v *version.Version, err error) {
	data, err := readWholeFile(fs, metadataPath(dbPath))
	if err != nil {
		return 0, 0, nil, err
	}
	c := &cursor{buf: data}

	seq = c.u64()
	nextFileID = c.u64()
	numLevels := c.u64()

	v = version.New()
	for li := uint64(0); li < numLevels; li++ {
		levelID := int(c.u64())
		numRuns := c.u64()
		for ri := uint64(0); ri < numRuns; ri++ {
			numSSTs := c.u64()
			tables := make([]*version.Table, 0, numSSTs)
			for si := uint64(0); si < numSSTs; si++ {
				_ = c.u64() // count, redundant with the reopened reader's NumRecords
				_ = c.u64() // size, redundant with the reopened file's Size
				id := c.u64()
				_ = c.u64() // index_offset, re-derived by sstable.Open
				_ = c.u64() // bloom_filter_offset, re-derived by sstable.Open
				nameLen := c.u64()
				name := string(c.bytes(nameLen))
				if c.err != nil {
					return 0, 0, nil, c.err
				}
				table, openErr := openExistingTable(fs, filepath.Join(dbPath, name), id)
				if openErr != nil {
					return 0, 0, nil, openErr
				}
				tables = append(tables, table)
			}
			v.Append(levelID, version.NewSortedRun(tables))
		}
	}
	if c.err != nil {
		return 0, 0, nil, c.err
	}
	return seq, nextFileID, v, nil
}

func openExistingTable(fs vfs.FS, name string, id uint64) (*version.Table, error) {
	raf, err := fs.OpenRandomAccess(name)
	if err != nil {
		return nil, fmt.Errorf("wing: reopen %s: %w", name, err)
	}
	size, err := raf.Size()
	if err != nil {
		return nil, err
	}
	reader, err := sstable.Open(raf, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruption, name, err)
	}
	return version.NewTable(id, name, uint64(size), reader, fs, raf), nil
}

func readWholeFile(fs vfs.FS, name string) ([]byte, error) {
	raf, err := fs.OpenRandomAccess(name)
	if err != nil {
		return nil, err
	}
	defer raf.Close()
	size, err := raf.Size()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := raf.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// cursor is a minimal sequential reader over an in-memory byte slice,
// used only to parse the metadata file's flat field layout.
type cursor struct {
	buf []byte
	pos int
	err error
}

func (c *cursor) u64() uint64 {
	if c.err != nil || c.pos+8 > len(c.buf) {
		c.err = fmt.Errorf("%w: metadata file truncated", ErrCorruption)
		return 0
	}
	v := encoding.DecodeFixed64(c.buf[c.pos:])
	c.pos += 8
	return v
}

func (c *cursor) bytes(n uint64) []byte {
	if c.err != nil || uint64(c.pos)+n > uint64(len(c.buf)) {
		c.err = fmt.Errorf("%w: metadata file truncated", ErrCorruption)
		return nil
	}
	b := c.buf[c.pos : uint64(c.pos)+n]
	c.pos += int(n)
	return b
}
