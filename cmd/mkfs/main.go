// Command mkfs builds this nucleus's flat filesystem image from a host
// directory tree: a 4KiB boot block (directory/inode/data counts plus up
// to 63 dentries), one 4KiB inode block per file, then the file data
// itself in 4KiB blocks. Grounded in biscuit's mkfs.Addfiles WalkDir
// convention, flattened to match fs.Mount's single-level, no-subdirectory
// image format.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding/unicode"
)

const (
	blockSize   = 4096
	nameMax     = 32
	maxDentry   = 63
	maxBlkIdx   = 1023
	dentrySize  = 64
	bootHdrSize = 64

	dFile = 1
	dDir  = 2
)

type fileEntry struct {
	name string
	data []byte
}

func main() {
	if len(os.Args) != 3 {
		fmt.Printf("usage: %s <output image> <skel dir>\n", os.Args[0])
		os.Exit(1)
	}
	outPath, skelDir := os.Args[1], os.Args[2]

	entries, err := os.ReadDir(skelDir)
	if err != nil {
		log.Fatalf("reading %s: %v", skelDir, err)
	}
	if len(entries) > maxDentry {
		log.Fatalf("%s has %d entries, more than the %d this image format holds", skelDir, len(entries), maxDentry)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			fmt.Printf("skipping subdirectory %s: this image format is flat\n", e.Name())
			continue
		}
		if err := validateASCIIName(e.Name()); err != nil {
			log.Fatalf("%s: %v", e.Name(), err)
		}
		names = append(names, e.Name())
	}

	files := make([]fileEntry, len(names))
	g, _ := errgroup.WithContext(context.Background())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(skelDir, name))
			if err != nil {
				return err
			}
			files[i] = fileEntry{name: name, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("reading skel files: %v", err)
	}

	img, err := build(files)
	if err != nil {
		log.Fatalf("building image: %v", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("creating %s: %v", outPath, err)
	}
	defer out.Close()
	if _, err := out.Write(img); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
	if err := unix.Fsync(int(out.Fd())); err != nil {
		log.Fatalf("fsync %s: %v", outPath, err)
	}
}

// validateASCIIName rejects a host filename that is too long once encoded
// into the image's fixed 32-byte slot, or that is not plain ASCII — a
// multi-byte UTF-8 rune silently byte-truncated at the 32-byte boundary
// would corrupt the name, so this is checked up front rather than left to
// truncate.
func validateASCIIName(name string) error {
	if len(name) > nameMax {
		return fmt.Errorf("name longer than %d bytes", nameMax)
	}
	enc := unicode.UTF8.NewEncoder()
	for _, r := range name {
		if r >= utf8.RuneSelf {
			return fmt.Errorf("non-ASCII filename")
		}
	}
	if _, err := enc.String(name); err != nil {
		return fmt.Errorf("invalid UTF-8: %w", err)
	}
	return nil
}

// build assembles the boot block, one inode block per file, and the data
// blocks backing them, in the exact byte layout fs.Mount parses.
func build(files []fileEntry) ([]byte, error) {
	inodeCount := len(files)
	var dataBlocks [][blockSize]byte
	type inode struct {
		length int32
		blocks []int32
	}
	inodes := make([]inode, inodeCount)

	for i, f := range files {
		inodes[i].length = int32(len(f.data))
		remaining := f.data
		for len(remaining) > 0 {
			if len(inodes[i].blocks) >= maxBlkIdx {
				return nil, fmt.Errorf("%s exceeds the %d-block-per-file cap", f.name, maxBlkIdx)
			}
			var blk [blockSize]byte
			n := copy(blk[:], remaining)
			remaining = remaining[n:]
			inodes[i].blocks = append(inodes[i].blocks, int32(len(dataBlocks)))
			dataBlocks = append(dataBlocks, blk)
		}
	}

	bootBlock := make([]byte, blockSize)
	putLE32(bootBlock[0:4], uint32(len(files)))
	putLE32(bootBlock[4:8], uint32(inodeCount))
	putLE32(bootBlock[8:12], uint32(len(dataBlocks)))
	for i, f := range files {
		off := bootHdrSize + i*dentrySize
		if off+dentrySize > blockSize {
			return nil, fmt.Errorf("too many dentries for one boot block")
		}
		copy(bootBlock[off:off+nameMax], f.name)
		putLE32(bootBlock[off+nameMax:off+nameMax+4], dFile)
		putLE32(bootBlock[off+nameMax+4:off+nameMax+8], uint32(i))
	}

	img := make([]byte, 0, blockSize*(1+inodeCount+len(dataBlocks)))
	img = append(img, bootBlock...)
	for _, in := range inodes {
		blk := make([]byte, blockSize)
		putLE32(blk[0:4], uint32(in.length))
		for j, idx := range in.blocks {
			off := 4 + j*4
			if off+4 > blockSize {
				return nil, fmt.Errorf("inode block-index table overflow")
			}
			putLE32(blk[off:off+4], uint32(idx))
		}
		img = append(img, blk...)
	}
	for _, blk := range dataBlocks {
		img = append(img, blk[:]...)
	}
	return img, nil
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
