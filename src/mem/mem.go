// Package mem names the physical-memory vocabulary vm builds its paging
// manager out of: physical addresses and the two shapes a 4KiB page is
// viewed through, plus the x86 page-table/directory entry bits.
package mem

import "unsafe"

// / Pa_t is a physical address.
type Pa_t uintptr

// / Pg_t views a 4KiB page as 1024 32-bit page-table/directory entries.
type Pg_t *[1024]uint32

// / Bytepg_t views a 4KiB page as 4096 raw bytes.
type Bytepg_t *[4096]uint8

const (
	PGSIZE     = 4096
	PGSIZE4M   = 4 * 1024 * 1024
	PGSHIFT    = 12
	PDSHIFT    = 22
	PTE_P      = 1 << 0 // present
	PTE_W      = 1 << 1 // read/write
	PTE_U      = 1 << 2 // user/supervisor
	PTE_PS     = 1 << 7 // page size (4MiB when set at the PD level)
	PTE_ADDR   = ^uintptr(0xfff)
	PTE_ADDR4M = ^uintptr(PGSIZE4M - 1)
)

// / AsWords reinterprets a byte-shaped page as a word-shaped one. Both
// / shapes alias the same 4KiB allocation; the caller picks whichever view
// / fits the access it is performing.
func AsWords(p Bytepg_t) Pg_t {
	return (*[1024]uint32)(unsafe.Pointer(p))
}

// / AsBytes is AsWords's inverse.
func AsBytes(p Pg_t) Bytepg_t {
	return (*[4096]uint8)(unsafe.Pointer(p))
}

// / Dmaplen returns a byte slice over pa..pa+length, valid because this
// / nucleus's identity-mapped low memory makes every physical address
// / also a valid virtual one. Grounded in biscuit's mem/dmap.go Dmaplen,
// / the same raw-pointer-cast idiom without biscuit's separate direct-map
// / offset (this nucleus has none: physical address equals virtual
// / address everywhere it matters).
func Dmaplen(pa Pa_t, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(pa))), length)
}
