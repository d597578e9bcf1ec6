package fs

import (
	"bytes"
	"testing"

	"defs"
)

const bootHeaderSize = 64

type imageFile struct {
	name string
	typ  int32
	data []byte
}

// buildImage assembles a filesystem image in exactly the layout Mount
// parses: one boot block, then one inode block per file, then the file
// data itself in 4KiB blocks. Mirrors cmd/mkfs's build().
func buildImage(t *testing.T, files []imageFile) []byte {
	t.Helper()

	type inode struct {
		length int32
		blocks []int32
	}
	var dataBlocks [][BlockSize]byte
	inodes := make([]inode, len(files))

	for i, f := range files {
		inodes[i].length = int32(len(f.data))
		remaining := f.data
		for len(remaining) > 0 {
			var blk [BlockSize]byte
			n := copy(blk[:], remaining)
			remaining = remaining[n:]
			inodes[i].blocks = append(inodes[i].blocks, int32(len(dataBlocks)))
			dataBlocks = append(dataBlocks, blk)
		}
	}

	boot := make([]byte, BlockSize)
	putLE32(boot[0:4], uint32(len(files)))
	putLE32(boot[4:8], uint32(len(files)))
	putLE32(boot[8:12], uint32(len(dataBlocks)))
	for i, f := range files {
		off := bootHeaderSize + i*dentrySize
		copy(boot[off:off+NameMax], f.name)
		putLE32(boot[off+NameMax:off+NameMax+4], uint32(f.typ))
		putLE32(boot[off+NameMax+4:off+NameMax+8], uint32(i))
	}

	img := append([]byte{}, boot...)
	for _, in := range inodes {
		blk := make([]byte, BlockSize)
		putLE32(blk[0:4], uint32(in.length))
		for j, idx := range in.blocks {
			putLE32(blk[4+j*4:8+j*4], uint32(idx))
		}
		img = append(img, blk...)
	}
	for _, blk := range dataBlocks {
		img = append(img, blk[:]...)
	}
	return img
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func TestMountRejectsImageShorterThanOneBlock(t *testing.T) {
	if err := Mount(make([]byte, BlockSize-1)); err != -defs.EINVAL {
		t.Fatalf("Mount(short image) = %d, want -EINVAL", err)
	}
}

func TestReadDentryByNameExactBoundary(t *testing.T) {
	name32 := bytes.Repeat([]byte("a"), NameMax)
	img := buildImage(t, []imageFile{{name: string(name32), typ: int32(defs.D_FILE), data: []byte("hi")}})
	if err := Mount(img); err != 0 {
		t.Fatalf("Mount: %d", err)
	}

	if _, err := ReadDentryByName(string(name32)); err != 0 {
		t.Fatalf("ReadDentryByName(32-byte name) = %d, want success", err)
	}

	name33 := string(name32) + "a"
	if _, err := ReadDentryByName(name33); err != -defs.ENOENT {
		t.Fatalf("ReadDentryByName(33-byte name) = %d, want -ENOENT", err)
	}
}

func TestReadDentryByNameNoMatch(t *testing.T) {
	img := buildImage(t, []imageFile{{name: "hello", typ: int32(defs.D_FILE), data: []byte("x")}})
	if err := Mount(img); err != 0 {
		t.Fatalf("Mount: %d", err)
	}
	if _, err := ReadDentryByName("nope"); err != -defs.ENOENT {
		t.Fatalf("ReadDentryByName(missing) = %d, want -ENOENT", err)
	}
	// A prefix of a real name must not match: nameLen/content compare
	// both have to agree.
	if _, err := ReadDentryByName("hell"); err != -defs.ENOENT {
		t.Fatalf("ReadDentryByName(prefix) = %d, want -ENOENT", err)
	}
}

func TestReadDataCrossesBlockBoundary(t *testing.T) {
	data := bytes.Repeat([]byte("x"), BlockSize+100)
	for i := range data {
		data[i] = byte('A' + i%26)
	}
	img := buildImage(t, []imageFile{{name: "big", typ: int32(defs.D_FILE), data: data}})
	if err := Mount(img); err != 0 {
		t.Fatalf("Mount: %d", err)
	}
	dent, err := ReadDentryByName("big")
	if err != 0 {
		t.Fatalf("ReadDentryByName: %d", err)
	}

	buf := make([]byte, len(data))
	n, err := ReadData(int(dent.Inode), 0, buf)
	if err != 0 {
		t.Fatalf("ReadData: %d", err)
	}
	if n != len(data) {
		t.Fatalf("ReadData returned %d bytes, want %d", n, len(data))
	}
	if !bytes.Equal(buf, data) {
		t.Fatalf("ReadData content mismatch across block boundary")
	}
}

func TestReadDataAtOrPastEOF(t *testing.T) {
	img := buildImage(t, []imageFile{{name: "small", typ: int32(defs.D_FILE), data: []byte("abc")}})
	if err := Mount(img); err != 0 {
		t.Fatalf("Mount: %d", err)
	}
	dent, _ := ReadDentryByName("small")

	buf := make([]byte, 10)
	n, err := ReadData(int(dent.Inode), 3, buf)
	if err != 0 || n != 0 {
		t.Fatalf("ReadData(offset==length) = (%d, %d), want (0, 0)", n, err)
	}
	n, err = ReadData(int(dent.Inode), 100, buf)
	if err != 0 || n != 0 {
		t.Fatalf("ReadData(offset>length) = (%d, %d), want (0, 0)", n, err)
	}
}

func TestStatUnknownInode(t *testing.T) {
	img := buildImage(t, []imageFile{{name: "f", typ: int32(defs.D_FILE), data: []byte("z")}})
	if err := Mount(img); err != 0 {
		t.Fatalf("Mount: %d", err)
	}
	if _, err := Stat(-1); err != -defs.ENOENT {
		t.Fatalf("Stat(-1) = %d, want -ENOENT", err)
	}
	if _, err := Stat(99); err != -defs.ENOENT {
		t.Fatalf("Stat(99) = %d, want -ENOENT", err)
	}
}

func TestDirHandleReadPastEndOfListing(t *testing.T) {
	img := buildImage(t, []imageFile{{name: "only", typ: int32(defs.D_FILE), data: []byte("q")}})
	if err := Mount(img); err != 0 {
		t.Fatalf("Mount: %d", err)
	}
	d := &DirHandle{}
	buf := make([]byte, NameMax)

	n, err := d.Read(buf)
	if err != 0 || n != 4 {
		t.Fatalf("first DirHandle.Read = (%d, %d), want (4, 0)", n, err)
	}
	n, err = d.Read(buf)
	if err != 0 || n != 0 {
		t.Fatalf("DirHandle.Read past end = (%d, %d), want (0, 0)", n, err)
	}
}
