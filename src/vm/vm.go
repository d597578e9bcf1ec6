// Package vm implements the nucleus's single-address-space paging
// manager: one page directory and one first-megabyte page table, with no
// demand paging, swapping, or copy-on-write.
package vm

import (
	"unsafe"

	"arch"
	"mem"
	"util"
)

// / Pagedir_t is the one page directory and PT0 this nucleus ever has.
// / There is no per-process address space: every process shares this
// / same directory, and the scheduler repoints its two variable slots
// / (the user-program 4MiB window and the user-video 4KiB window) on
// / every context switch.
type Pagedir_t struct {
	PD  mem.Pg_t
	PT0 mem.Pg_t
}

const (
	pdKernelSlot = 1 // VA 4MiB: kernel identity map, always present
	pdVideoSlot  = 0 // VA 0: PT0 lives here, for the one 4KiB video page
)

// / New allocates (from caller-supplied, already-zeroed backing pages) a
// / fresh Pagedir_t with the kernel identity mapping installed.
func New(pdPage, pt0Page mem.Bytepg_t) *Pagedir_t {
	pd := mem.AsWords(pdPage)
	pt0 := mem.AsWords(pt0Page)
	for i := range pd {
		pd[i] = 0
	}
	for i := range pt0 {
		pt0[i] = 0
	}

	vp := &Pagedir_t{PD: pd, PT0: pt0}

	// PT0 occupies VA 0..4MiB, present/read-write, supervisor-only.
	pd[pdVideoSlot] = uint32(physOf(pt0Page)) | mem.PTE_W | mem.PTE_P

	// Kernel identity map: VA 4MiB maps to physical 4MiB, 4MiB page.
	pd[pdKernelSlot] = uint32(4*1024*1024) | mem.PTE_PS | mem.PTE_W | mem.PTE_P

	return vp
}

// physOf is the identity mapping this nucleus runs under before paging is
// enabled: every page's physical address equals its link-time address.
func physOf(p mem.Bytepg_t) mem.Pa_t {
	return mem.Pa_t(uintptr(unsafe.Pointer(p)))
}

// / MapPage marks virt present in the directory (a 4MiB page) or in PT0
// / (a 4KiB page within the first megabyte) mapped to phys, with the
// / given permission bits, and flushes the TLB. Mirrors the original's
// / map_page: callers pass already page/4MiB-aligned addresses; any low
// / bits are masked off.
func (vp *Pagedir_t) MapPage(virt, phys mem.Pa_t, rw, user, pagesize4m bool) {
	var entry uint32
	if pagesize4m {
		entry = uint32(util.Rounddown(phys, mem.Pa_t(mem.PGSIZE4M)))
		entry |= mem.PTE_PS
	} else {
		entry = uint32(util.Rounddown(phys, mem.Pa_t(mem.PGSIZE)))
	}
	if rw {
		entry |= mem.PTE_W
	}
	if user {
		entry |= mem.PTE_U
	}
	entry |= mem.PTE_P

	if pagesize4m {
		pdIdx := (uint32(virt) >> 22) & 0x3ff
		vp.PD[pdIdx] = entry
	} else {
		ptIdx := (uint32(virt) >> 12) & 0x3ff
		vp.PT0[ptIdx] = entry
	}
	arch.FlushTLB()
}

// / UnmapPage clears the directory or PT0 entry for virt and flushes the
// / TLB. A no-op on an already-unmapped slot.
func (vp *Pagedir_t) UnmapPage(virt mem.Pa_t, pagesize4m bool) {
	if pagesize4m {
		pdIdx := (uint32(virt) >> 22) & 0x3ff
		vp.PD[pdIdx] = 0
	} else {
		ptIdx := (uint32(virt) >> 12) & 0x3ff
		vp.PT0[ptIdx] = 0
	}
	arch.FlushTLB()
}

// / MapUserProgram repoints the fixed 4MiB user-program slot to pid's
// / program region: physical 8MiB + (pid-1)*4MiB.
func (vp *Pagedir_t) MapUserProgram(userProgVirt mem.Pa_t, pid int) {
	phys := mem.Pa_t(8*1024*1024 + (pid-1)*4*1024*1024)
	vp.MapPage(userProgVirt, phys, true, true, true)
}

// / MapUserVideo repoints the one 4KiB user-video page to the live
// / framebuffer or to a background group's shadow page, whichever
// / physical address phys the caller supplies (cons owns that
// / mapping). UnmapUserVideo removes it for a process that has not
// / called vidmap.
func (vp *Pagedir_t) MapUserVideo(userVideoVirt, phys mem.Pa_t) {
	vp.MapPage(userVideoVirt, phys, true, true, false)
}

func (vp *Pagedir_t) UnmapUserVideo(userVideoVirt mem.Pa_t) {
	vp.UnmapPage(userVideoVirt, false)
}

// / Install loads CR3 with this directory's physical address and enables
// / paging (CR0.PG) and 4MiB pages (CR4.PSE). Called once, at boot.
func (vp *Pagedir_t) Install() {
	arch.EnablePSE()
	arch.LoadCR3(uintptr(physOf(mem.AsBytes(vp.PD))))
	arch.EnablePaging()
}
