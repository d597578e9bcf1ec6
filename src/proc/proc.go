// Package proc is the fixed pool of process control blocks this nucleus
// ever has: seven slots (pid 0 is the kernel, pids 1-6 are user), held in
// this package's own array. PcbPhysAddr and KstackTop give each pid's
// 8KiB kernel-stack slab inside the kernel's identity-mapped 4MiB page, as
// the original's pcb.c lays them out; the Pcb_t records themselves are not
// stored inside those slabs.
//
// Generalized from biscuit's tinfo.Threadinfo_t (a map keyed by a dynamic
// thread id) down to a fixed array: this nucleus never has more than
// bounds.Nprocs live processes, so a map and its lookup cost buys nothing
// a direct index doesn't already give for free.
package proc

import (
	"bounds"
	"defs"
	"fdops"
)

// / Pcb_t is one process's kernel-side bookkeeping record.
type Pcb_t struct {
	Pid      int
	Parent   int
	inUse    bool
	UserEsp  uint32
	UserEbp  uint32
	Eip      uint32
	KernEsp  uint32
	KernEbp  uint32
	TssEsp0  uint32
	fds      [bounds.Nfds]fdops.Fdops_i
	fdInUse  [bounds.Nfds]bool
	Args     [bounds.ArgMax]byte
	ArgsLen  int
	VidMap   bool
}

var pool [bounds.Nprocs]Pcb_t

// Init clears the pool and establishes pid 0 as the notional kernel, the
// parent every top-level shell ultimately chains back to.
func Init() {
	for i := range pool {
		pool[i] = Pcb_t{}
	}
	pool[0].Pid = 0
	pool[0].Parent = -1
	pool[0].inUse = true
}

// Alloc finds the first free slot (pid 0 is never freed, so the scan
// starts at 1) and marks it in use, mirroring get_new_pid's linear scan.
func Alloc() (*Pcb_t, defs.Err_t) {
	for pid := 1; pid < bounds.Nprocs; pid++ {
		if !pool[pid].inUse {
			pool[pid] = Pcb_t{Pid: pid, inUse: true}
			return &pool[pid], 0
		}
	}
	return nil, -defs.EAGAIN
}

// Free returns pid's slot to the pool. pid 0 (the kernel) can never be
// freed; callers never ask.
func Free(pid int) {
	if pid <= 0 || pid >= bounds.Nprocs {
		return
	}
	pool[pid] = Pcb_t{}
}

// Get returns pid's PCB, or nil if pid is out of range or not in use.
func Get(pid int) *Pcb_t {
	if pid < 0 || pid >= bounds.Nprocs || !pool[pid].inUse {
		return nil
	}
	return &pool[pid]
}

// FdAlloc installs f in the first free FD slot (0 and 1 are reserved for
// stdin/stdout by the caller, never handed out here after boot), mirroring
// get_new_fd's linear scan.
func (p *Pcb_t) FdAlloc(f fdops.Fdops_i) (int, defs.Err_t) {
	for fd := 0; fd < bounds.Nfds; fd++ {
		if !p.fdInUse[fd] {
			p.fds[fd] = f
			p.fdInUse[fd] = true
			return fd, 0
		}
	}
	return -1, -defs.EAGAIN
}

// FdGet returns the Fdops_i installed at fd, or nil if fd is out of range
// or not in use.
func (p *Pcb_t) FdGet(fd int) fdops.Fdops_i {
	if fd < 0 || fd >= bounds.Nfds || !p.fdInUse[fd] {
		return nil
	}
	return p.fds[fd]
}

// FdFree closes and clears fd. FDs 0 and 1 (stdin/stdout) cannot be freed
// by a user close() call; callers enforce that before calling FdFree.
func (p *Pcb_t) FdFree(fd int) defs.Err_t {
	if fd < 0 || fd >= bounds.Nfds || !p.fdInUse[fd] {
		return -defs.EBADF
	}
	err := p.fds[fd].Close()
	p.fds[fd] = nil
	p.fdInUse[fd] = false
	return err
}

// CloseAll closes every in-use FD, called during teardown.
func (p *Pcb_t) CloseAll() {
	for fd := 0; fd < bounds.Nfds; fd++ {
		if p.fdInUse[fd] {
			p.fds[fd].Close()
			p.fds[fd] = nil
			p.fdInUse[fd] = false
		}
	}
}

// PcbPhysAddr returns the physical address pcb.c gives pid's PCB: the top of its
// 8KiB kernel-stack slab, counting down from the end of the kernel's 8MiB
// identity-mapped region, exactly as get_pcb_addr computes it.
func PcbPhysAddr(pid int) uint32 {
	return uint32(bounds.UserProgPhysBase) - uint32(8*1024)*(uint32(pid)+1)
}

// KstackTop returns the initial kernel-stack pointer for pid: four bytes
// below the bottom of its PCB block, matching get_kstack_addr.
func KstackTop(pid int) uint32 {
	return uint32(bounds.UserProgPhysBase) - uint32(8*1024)*uint32(pid) - 4
}
