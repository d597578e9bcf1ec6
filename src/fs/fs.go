// Package fs is a read-only reader for the nucleus's flat, block-addressed
// filesystem image: one 4KiB boot block, `inode_count` 4KiB inode blocks,
// then `data_count` 4KiB data blocks. The whole image is read into memory
// once at boot (grounded in the original's file_sys.c, which likewise
// treats the image as one contiguous in-memory blob handed to it by the
// bootloader — this nucleus has no block device driver of its own, a
// deliberate simplification from biscuit's disk-backed ufs package, whose
// buffer-cache/superblock machinery targets a real AHCI device this
// teaching kernel does not have).
package fs

import "defs"

const (
	BlockSize  = 4096
	NameMax    = 32
	MaxDentry  = 63
	MaxBlkIdx  = 1023
	dentrySize = 64
)

// / Dentry_t is one 64-byte directory entry: a NUL-padded name, a type
// / (FILE, DIR, or RTC — mirroring the three types file_sys.c recognizes),
// / and the backing inode number.
type Dentry_t struct {
	Name  [NameMax]byte
	Type  int32
	Inode int32
}

// / Stat_t is the read-only file length/type inquiry that Stat returns,
// / named and split out of the dentry the way the original keeps it
// / implicit; not present as a distinct operation in the distilled spec.
type Stat_t struct {
	Length int
	Type   int32
}

type inode struct {
	length int32
	blocks [MaxBlkIdx]int32
}

var (
	dirCount, inodeCount, dataCount int
	dentries                        [MaxDentry]Dentry_t
	inodes                          []inode
	dataBlocks                      [][BlockSize]byte
)

// Mount parses img as a filesystem image, populating the boot block,
// directory entries, inode blocks, and data blocks. Everything is copied
// into the typed tables above; img is not retained after Mount returns.
func Mount(img []byte) defs.Err_t {
	if len(img) < BlockSize {
		return -defs.EINVAL
	}

	dirCount = int(le32(img[0:4]))
	inodeCount = int(le32(img[4:8]))
	dataCount = int(le32(img[8:12]))

	if dirCount > MaxDentry {
		dirCount = MaxDentry
	}
	const bootHeaderSize = 64
	for i := 0; i < dirCount; i++ {
		off := bootHeaderSize + i*dentrySize
		if off+dentrySize > BlockSize {
			break
		}
		var d Dentry_t
		copy(d.Name[:], img[off:off+NameMax])
		d.Type = int32(le32(img[off+NameMax : off+NameMax+4]))
		d.Inode = int32(le32(img[off+NameMax+4 : off+NameMax+8]))
		dentries[i] = d
	}

	inodes = make([]inode, inodeCount)
	for i := 0; i < inodeCount; i++ {
		base := (i + 1) * BlockSize
		if base+BlockSize > len(img) {
			break
		}
		blk := img[base : base+BlockSize]
		inodes[i].length = int32(le32(blk[0:4]))
		for j := 0; j < MaxBlkIdx; j++ {
			off := 4 + j*4
			if off+4 > BlockSize {
				break
			}
			inodes[i].blocks[j] = int32(le32(blk[off : off+4]))
		}
	}

	dataBlocks = make([][BlockSize]byte, dataCount)
	dataBase := (inodeCount + 1) * BlockSize
	for i := 0; i < dataCount; i++ {
		base := dataBase + i*BlockSize
		if base+BlockSize > len(img) {
			break
		}
		copy(dataBlocks[i][:], img[base:base+BlockSize])
	}

	return 0
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// / nameLen returns the length of a NUL-padded dentry name, capped at
// / NameMax.
func nameLen(b [NameMax]byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return NameMax
}

// ReadDentryByName scans the directory entries for a byte-exact match,
// rejecting names longer than NameMax. Mirrors read_dentry_by_name's
// double length-and-content compare.
func ReadDentryByName(name string) (Dentry_t, defs.Err_t) {
	if len(name) > NameMax {
		return Dentry_t{}, -defs.ENOENT
	}
	for i := 0; i < dirCount; i++ {
		d := dentries[i]
		el := nameLen(d.Name)
		if el != len(name) {
			continue
		}
		if string(d.Name[:el]) == name {
			return d, 0
		}
	}
	return Dentry_t{}, -defs.ENOENT
}

// ReadDentryByIndex returns the i'th directory entry.
func ReadDentryByIndex(i int) (Dentry_t, defs.Err_t) {
	if i < 0 || i >= dirCount {
		return Dentry_t{}, -defs.ENOENT
	}
	return dentries[i], 0
}

// DentryCount returns the number of directory entries in the mounted
// image, for directory-read end-of-listing checks.
func DentryCount() int {
	return dirCount
}

// Stat returns inode's length and the dentry type that names it, or
// -defs.ENOENT for an out-of-range inode.
func Stat(inodeIdx int) (Stat_t, defs.Err_t) {
	if inodeIdx < 0 || inodeIdx >= inodeCount {
		return Stat_t{}, -defs.ENOENT
	}
	typ := int32(defs.D_FILE)
	for i := 0; i < dirCount; i++ {
		if int(dentries[i].Inode) == inodeIdx {
			typ = dentries[i].Type
			break
		}
	}
	return Stat_t{Length: int(inodes[inodeIdx].length), Type: typ}, 0
}

// ReadData copies up to len(buf) bytes of inode's data starting at offset
// into buf, walking its block-index array and crossing block boundaries
// as needed. Returns the number of bytes copied, which is less than
// len(buf) only at end of file or, with -defs.EINVAL, when a block index
// lies outside the data blocks.
func ReadData(inodeIdx, offset int, buf []byte) (int, defs.Err_t) {
	if inodeIdx < 0 || inodeIdx >= inodeCount {
		return 0, -defs.ENOENT
	}
	if len(buf) == 0 {
		return 0, 0
	}
	in := &inodes[inodeIdx]
	length := int(in.length)
	if offset >= length {
		return 0, 0
	}

	blkNum := offset / BlockSize
	posInBlk := offset % BlockSize

	n := 0
	for n < len(buf) && offset+n < length {
		if posInBlk >= BlockSize {
			blkNum++
			posInBlk = 0
		}
		blkIdx := int(in.blocks[blkNum])
		if blkIdx < 0 || blkIdx >= dataCount {
			return n, -defs.EINVAL
		}
		buf[n] = dataBlocks[blkIdx][posInBlk]
		n++
		posInBlk++
	}
	return n, 0
}

// / FileHandle implements fdops.Fdops_i over a regular file's inode,
// / owning its own byte cursor the way a fixed fd-table slot does in the
// / original (file_position lives in the fd slot, not the file itself).
type FileHandle struct {
	Inode  int
	cursor int
}

func (f *FileHandle) Read(buf []byte) (int, defs.Err_t) {
	n, err := ReadData(f.Inode, f.cursor, buf)
	if err != 0 {
		return 0, err
	}
	f.cursor += n
	return n, 0
}

func (f *FileHandle) Write(buf []byte) (int, defs.Err_t) {
	return 0, -defs.EINVAL
}

func (f *FileHandle) Close() defs.Err_t {
	return 0
}

// / DirHandle implements fdops.Fdops_i over the directory listing, one
// / dentry name per Read call, advancing past the whole listing like
// / dir_read's one-dentry-per-call contract.
type DirHandle struct {
	cursor int
}

func (d *DirHandle) Read(buf []byte) (int, defs.Err_t) {
	ent, err := ReadDentryByIndex(d.cursor)
	if err != 0 {
		return 0, 0 // past end of directory: 0 bytes, not an error
	}
	n := nameLen(ent.Name)
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf[:n], ent.Name[:n])
	d.cursor++
	return n, 0
}

func (d *DirHandle) Write(buf []byte) (int, defs.Err_t) {
	return 0, -defs.EINVAL
}

func (d *DirHandle) Close() defs.Err_t {
	return 0
}
