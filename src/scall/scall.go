// Package scall is the int 0x80 syscall gate: execute/halt process
// control, the read/write/open/close file-descriptor calls, and the two
// console-adjacent calls (getargs, vidmap) every user program links
// against. Grounded in the original's system.c for call semantics and the
// ELF-load/halt-unwind trick, generalized from one process group to the
// three this nucleus schedules across.
package scall

import (
	"strings"
	"unsafe"

	"bounds"
	"defs"
	"fdops"
	"fs"
	"proc"
	"sched"

	"arch"
	"cons"
	"mem"
	"rtc"
	"vm"
)

var pd *vm.Pagedir_t

// Init records the one page directory every Execute/Halt call repoints
// the user-program and user-video slots through.
func Init(pagedir *vm.Pagedir_t) {
	pd = pagedir
}

// haltStatus carries a halted child's exit status back to the parent's
// blocked Execute call, keyed by the parent's pid. A single-kernel-thread
// nucleus never has two Halts racing to write the same parent's entry.
var haltStatus = map[int]int{}

// Execute tokenizes cmdline into a filename and up to bounds.MaxExecArgs
// arguments, loads the named ELF image into the new child's 4MiB program
// slot, and transfers control to it. It does not return to the caller
// until that child (or whichever descendant eventually inherits its
// slot) halts.
func Execute(group int, cmdline string) defs.Err_t {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return -defs.EINVAL
	}
	filename := fields[0]

	argv := fields[1:]
	if len(argv) > bounds.MaxExecArgs {
		argv = argv[:bounds.MaxExecArgs]
	}
	argStr := strings.Join(argv, " ")
	if len(argStr) > bounds.ArgMax {
		return -defs.E2BIG
	}

	dent, err := fs.ReadDentryByName(filename)
	if err != 0 {
		return err
	}
	if dent.Type != int32(defs.D_FILE) {
		return -defs.ENOENT
	}
	st, err := fs.Stat(int(dent.Inode))
	if err != 0 {
		return err
	}

	const elfHeaderLen = 28
	if st.Length < elfHeaderLen {
		return -defs.ENOENT
	}

	loadOffset := int(bounds.UserLoadVirt - bounds.UserProgVirt)
	if loadOffset+st.Length > bounds.UserProgSlotSize {
		return -defs.ENOMEM
	}

	parentPid := sched.ActivePid(group)
	parentPcb := proc.Get(parentPid)
	if parentPcb == nil {
		// No live process owns group yet (its first-ever shell, or a
		// root shell respawning after Halt freed its old pid): there is
		// nothing to unwind into but the kernel's own pid-0 slot, the
		// same fallback Halt's parentPid<=0 check already treats pid 0
		// and "no parent" as equivalent.
		parentPid = 0
		parentPcb = proc.Get(0)
	}

	childPcb, err := proc.Alloc()
	if err != 0 {
		return err
	}
	childPcb.Parent = parentPid
	copy(childPcb.Args[:], argStr)
	childPcb.ArgsLen = len(argStr)

	// The child's program slot is only reachable through the one shared
	// page directory's UserProgVirt window, never by treating its
	// physical address as a bare pointer: this nucleus's identity map
	// covers only the kernel's own 4-8MiB region and cons's video pages,
	// not arbitrary physical memory above it. Map the slot in before
	// touching it, the same mapping Execute leaves in place for the
	// child's own ring-3 execution afterward.
	pd.MapUserProgram(bounds.UserProgVirt, childPcb.Pid)
	dst := mem.Dmaplen(mem.Pa_t(bounds.UserProgVirt), bounds.UserProgSlotSize)

	n, err := fs.ReadData(int(dent.Inode), 0, dst[loadOffset:loadOffset+st.Length])
	if err != 0 || n != st.Length {
		proc.Free(childPcb.Pid)
		return -defs.ENOENT
	}
	image := dst[loadOffset : loadOffset+st.Length]
	if image[0] != 0x7F || image[1] != 'E' || image[2] != 'L' || image[3] != 'F' {
		proc.Free(childPcb.Pid)
		return -defs.ENOENT
	}
	childPcb.Eip = le32(image[24:28])
	childPcb.UserEsp = uint32(bounds.UserProgVirt+bounds.UserProgSlotSize) - 4

	childPcb.FdAlloc(&stdioFd{group: group, write: false})
	childPcb.FdAlloc(&stdioFd{group: group, write: true})

	sched.SetActivePid(group, childPcb.Pid)

	childPcb.TssEsp0 = proc.KstackTop(childPcb.Pid)
	arch.LoadTSS(childPcb.TssEsp0)
	arch.RunUser(&parentPcb.KernEsp, &parentPcb.KernEbp, childPcb.Eip, childPcb.UserEsp)

	status := haltStatus[parentPid]
	delete(haltStatus, parentPid)
	return defs.Err_t(status)
}

// Halt frees the caller's PCB and FDs and unwinds to its parent,
// propagating status — or defs.HaltExceptionStatus when exception is
// true, for a process trap killed rather than self-halted. A group's
// root shell (parent pid 0, the kernel) has no parent Execute call to
// unwind into, so it respawns a fresh shell in its own slot instead.
func Halt(group int, status uint8, exception bool) defs.Err_t {
	pid := sched.ActivePid(group)
	pcb := proc.Get(pid)
	if pcb == nil {
		return -defs.EINVAL
	}
	pcb.CloseAll()
	parentPid := pcb.Parent

	result := int(status)
	if exception {
		result = defs.HaltExceptionStatus
	}

	if parentPid <= 0 {
		proc.Free(pid)
		return Execute(group, "shell")
	}

	parentPcb := proc.Get(parentPid)
	proc.Free(pid)
	if parentPcb == nil {
		return -defs.EINVAL
	}

	haltStatus[parentPid] = result
	sched.SetActivePid(group, parentPid)
	pd.MapUserProgram(bounds.UserProgVirt, parentPid)
	arch.LoadTSS(parentPcb.TssEsp0)
	arch.RestoreKernelStack(parentPcb.KernEsp, parentPcb.KernEbp)
	panic("unreachable: RestoreKernelStack does not return")
}

// Read dispatches fd's Read through the calling process's FD table.
func Read(group, fd int, buf []byte) (int, defs.Err_t) {
	pcb := proc.Get(sched.ActivePid(group))
	if pcb == nil {
		return 0, -defs.EINVAL
	}
	h := pcb.FdGet(fd)
	if h == nil {
		return 0, -defs.EBADF
	}
	return h.Read(buf)
}

// Write dispatches fd's Write through the calling process's FD table.
func Write(group, fd int, buf []byte) (int, defs.Err_t) {
	pcb := proc.Get(sched.ActivePid(group))
	if pcb == nil {
		return 0, -defs.EINVAL
	}
	h := pcb.FdGet(fd)
	if h == nil {
		return 0, -defs.EBADF
	}
	return h.Write(buf)
}

// Open resolves name against the mounted filesystem, builds the matching
// Fdops_i (file, directory, or RTC special), and installs it in the
// caller's FD table.
func Open(group int, name string) (int, defs.Err_t) {
	pcb := proc.Get(sched.ActivePid(group))
	if pcb == nil {
		return -1, -defs.EINVAL
	}
	dent, err := fs.ReadDentryByName(name)
	if err != 0 {
		return -1, err
	}

	var h fdops.Fdops_i
	switch int(dent.Type) {
	case defs.D_FILE:
		h = &fs.FileHandle{Inode: int(dent.Inode)}
	case defs.D_DIR:
		h = &fs.DirHandle{}
	case defs.D_RTC:
		rtc.Open(group)
		h = &rtcFd{group: group}
	default:
		return -1, -defs.ENOENT
	}

	fd, err := pcb.FdAlloc(h)
	if err != 0 {
		return -1, err
	}
	if r, ok := h.(*rtcFd); ok {
		r.fd = fd
	}
	return fd, 0
}

// Close releases fd, refusing the two reserved stdio slots the way the
// original's close() refuses fd 0 and 1.
func Close(group, fd int) defs.Err_t {
	if fd == 0 || fd == 1 {
		return -defs.EBADF
	}
	pcb := proc.Get(sched.ActivePid(group))
	if pcb == nil {
		return -defs.EINVAL
	}
	return pcb.FdFree(fd)
}

// Getargs copies the caller's saved argument buffer (NUL-terminated) into
// buf, refusing to truncate it.
func Getargs(group int, buf []byte) defs.Err_t {
	pcb := proc.Get(sched.ActivePid(group))
	if pcb == nil {
		return -defs.EINVAL
	}
	if pcb.ArgsLen == 0 {
		return -defs.EINVAL
	}
	if pcb.ArgsLen+1 > len(buf) {
		return -defs.EINVAL
	}
	copy(buf, pcb.Args[:pcb.ArgsLen])
	buf[pcb.ArgsLen] = 0
	return 0
}

// Vidmap maps the one user-video page for the caller and writes its fixed
// user-space address through screenStart, refusing a screenStart outside
// the caller's own 4MiB program region.
func Vidmap(group int, screenStart *uint32) defs.Err_t {
	addr := uintptr(unsafe.Pointer(screenStart))
	if addr < uintptr(bounds.UserProgVirt) || addr >= uintptr(bounds.UserProgVirt+bounds.UserProgSlotSize) {
		return -defs.EFAULT
	}
	pcb := proc.Get(sched.ActivePid(group))
	if pcb == nil {
		return -defs.EINVAL
	}
	pcb.VidMap = true
	*screenStart = uint32(bounds.UserVideoVirt)

	if group == cons.VisibleGroup() {
		pd.MapUserVideo(bounds.UserVideoVirt, bounds.VideoPhys)
	} else {
		pd.MapUserVideo(bounds.UserVideoVirt, cons.ShadowPhys(group))
	}
	return 0
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// / stdioFd implements fdops.Fdops_i over the console, installed at fds 0
// / and 1 of every new process: write==false is stdin (read-only),
// / write==true is stdout (write-only), matching the original's implicit
// / "fd 0/1 always point at the terminal" convention.
type stdioFd struct {
	group int
	write bool
}

func (s *stdioFd) Read(buf []byte) (int, defs.Err_t) {
	if s.write {
		return 0, -defs.EINVAL
	}
	return cons.Read(s.group, buf), 0
}

func (s *stdioFd) Write(buf []byte) (int, defs.Err_t) {
	if !s.write {
		return 0, -defs.EINVAL
	}
	return cons.Write(s.group, buf), 0
}

func (s *stdioFd) Close() defs.Err_t {
	return 0
}

// / rtcFd implements fdops.Fdops_i over the per-group virtualized RTC:
// / Read blocks for one tick at the group's current rate, Write (given a
// / 4-byte little-endian Hz value) reprograms that rate.
type rtcFd struct {
	group int
	fd    int
}

func (r *rtcFd) Read(buf []byte) (int, defs.Err_t) {
	rtc.Read(r.group)
	return 0, 0
}

func (r *rtcFd) Write(buf []byte) (int, defs.Err_t) {
	if len(buf) < 4 {
		return 0, -defs.EINVAL
	}
	if err := rtc.Write(r.group, int(le32(buf))); err != 0 {
		return 0, err
	}
	return 4, 0
}

func (r *rtcFd) Close() defs.Err_t {
	return rtc.Close(r.group, r.fd)
}
