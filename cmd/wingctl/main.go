// Command wingctl is an inspection tool for wing databases and raw
// SSTable files: open a database (or a single SST) and print what is
// there. The tool issues no writes of its own, but a database is opened
// through the normal Open, and closing it rewrites the metadata file.
//
// Reference: aalhour/rockyardkv cmd/ldb and cmd/sstdump for the
// command/flag shape, adapted from stdlib flag to urfave/cli/v3 and
// trimmed to inspection commands (no put/delete/repair).
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/Megumi-X/wing"
	"github.com/Megumi-X/wing/internal/dbformat"
	"github.com/Megumi-X/wing/internal/sstable"
	"github.com/Megumi-X/wing/vfs"
)

func main() {
	app := &cli.Command{
		Name:  "wingctl",
		Usage: "inspect a wing database or a standalone SSTable file",
		Commands: []*cli.Command{
			getCommand(),
			scanCommand(),
			statsCommand(),
			sstdumpCommand(),
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wingctl: %v\n", err)
		os.Exit(1)
	}
}

func dbPathFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "path to the database directory",
		Required: true,
	}
}

func openReadOnly(dbPath string) (*wing.DB, error) {
	opts := wing.DefaultOptions()
	opts.DBPath = dbPath
	opts.CreateNew = false
	return wing.Open(opts)
}

func formatBytes(b []byte, asHex bool) string {
	if asHex {
		return hex.EncodeToString(b)
	}
	for _, c := range b {
		if c < 32 || c > 126 {
			return hex.EncodeToString(b)
		}
	}
	return string(b)
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the value for a single key",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			dbPathFlag(),
			&cli.BoolFlag{Name: "hex", Usage: "print the value as hex"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("usage: wingctl get --db=<path> <key>")
			}
			db, err := openReadOnly(c.String("db"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			val, err := db.Get([]byte(c.Args().First()))
			if err != nil {
				return err
			}
			fmt.Println(formatBytes(val, c.Bool("hex")))
			return nil
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "scan key-value pairs in ascending key order",
		Flags: []cli.Flag{
			dbPathFlag(),
			&cli.StringFlag{Name: "from", Usage: "start key (inclusive); default is the first key"},
			&cli.IntFlag{Name: "limit", Usage: "maximum entries to print (0 = unlimited)"},
			&cli.BoolFlag{Name: "hex", Usage: "print keys and values as hex"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openReadOnly(c.String("db"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			var it *wing.Iterator
			if from := c.String("from"); from != "" {
				it = db.Seek([]byte(from))
			} else {
				it = db.Begin()
			}
			defer it.Close()

			limit := c.Int("limit")
			asHex := c.Bool("hex")
			count := 0
			for it.Valid() {
				fmt.Printf("%s => %s\n", formatBytes(it.Key(), asHex), formatBytes(it.Value(), asHex))
				count++
				if limit > 0 && count >= int(limit) {
					break
				}
				it.Next()
			}
			fmt.Printf("\n(%d entries scanned)\n", count)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print activity counters and per-level file counts",
		Flags: []cli.Flag{dbPathFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openReadOnly(c.String("db"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			s := db.Stats()
			fmt.Printf("bytes_flushed:    %d\n", s.BytesFlushed)
			fmt.Printf("bytes_compacted:  %d\n", s.BytesCompacted)
			fmt.Printf("flush_count:      %d\n", s.FlushCount)
			fmt.Printf("compaction_count: %d\n", s.CompactionCount)
			for i, n := range s.LevelFileCounts {
				fmt.Printf("level_%d_files:    %d\n", i, n)
			}
			return nil
		},
	}
}

func sstdumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "sstdump",
		Usage:     "dump the contents of a single SSTable file",
		ArgsUsage: "<file.sst>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "hex", Usage: "print keys and values as hex"},
			&cli.BoolFlag{Name: "properties", Usage: "print table properties instead of scanning records"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("usage: wingctl sstdump [--properties] <file.sst>")
			}
			path := c.Args().First()

			fs := vfs.NewOSFS()
			raf, err := fs.OpenRandomAccess(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer raf.Close()

			size, err := raf.Size()
			if err != nil {
				return err
			}
			reader, err := sstable.Open(raf, size)
			if err != nil {
				return fmt.Errorf("open sstable %s: %w", path, err)
			}

			if c.Bool("properties") {
				fmt.Printf("file:              %s\n", filepath.Base(path))
				fmt.Printf("size_bytes:        %d\n", size)
				fmt.Printf("num_records:       %d\n", reader.NumRecords())
				fmt.Printf("index_offset:      %d\n", reader.IndexOffset())
				fmt.Printf("bloom_offset:      %d\n", reader.BloomFilterOffset())
				fmt.Printf("smallest_key:      %s\n", formatBytes(reader.SmallestKey().UserKey(), true))
				fmt.Printf("largest_key:       %s\n", formatBytes(reader.LargestKey().UserKey(), true))
				return nil
			}

			asHex := c.Bool("hex")
			it := reader.NewIterator()
			count := 0
			for it.SeekToFirst(); it.Valid(); it.Next() {
				k := it.Key()
				tag := "put"
				if k.Type() == dbformat.TypeDeletion {
					tag = "del"
				}
				fmt.Printf("%s seq=%d %s => %s\n", tag, k.Seq(), formatBytes(k.UserKey(), asHex), formatBytes(it.Value(), asHex))
				count++
			}
			if err := it.Err(); err != nil {
				return fmt.Errorf("iterate %s: %w", path, err)
			}
			fmt.Printf("\n(%d records)\n", count)
			return nil
		},
	}
}
