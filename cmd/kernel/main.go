// Command kernel is this nucleus's freestanding entry point: the Go
// analogue of the original's kernel.c bring-up sequence, invoked by a
// minimal assembly rt0 stub once the bootloader has handed off in
// protected mode (the same division of labor gopher-os's rt0/Kmain split
// uses, and the reason main never returns — there is no process to return
// to).
package main

import (
	"unsafe"

	"bounds"
	"defs"
	"fs"
	"mem"
	"proc"
	"trap"

	"arch"
	"cons"
	"idt"
	"pic"
	"pit"
	"rtc"
	"scall"
	"sched"
	"vm"
)

// pdPage and pt0Page back the one page directory and first-megabyte page
// table this nucleus ever allocates; fixed, compile-time storage, the same
// way the original reserves page_directory/page_table_0 as file-scope
// arrays rather than calling a frame allocator it has no use for.
var (
	pdPage  [4096]uint8
	pt0Page [4096]uint8
)

// fsImage is the in-memory buffer fs.Mount parses as the flat filesystem
// image — this nucleus has no block device driver. It is declared
// zero-filled; nothing in this program embeds or loads an image into it.
var fsImage [bounds.FsImageSize]byte

func main() {
	pd := vm.New(mem.Bytepg_t(&pdPage), mem.Bytepg_t(&pt0Page))
	pd.Install()

	pic.Init()
	pit.Init(bounds.PitHz)
	rtc.Init()
	idt.Install()

	if err := fs.Mount(fsImage[:]); err != 0 {
		arch.Halt()
		return
	}

	proc.Init()
	cons.Init(pd)
	sched.Init(pd)
	scall.Init(pd)

	sched.SetVideoPhysResolver(func(group int) mem.Pa_t {
		if group == cons.VisibleGroup() {
			return bounds.VideoPhys
		}
		return cons.ShadowPhys(group)
	})
	sched.SetBootstrap(func(group int) {
		scall.Execute(group, "shell")
	})

	idt.SetExceptionHandler(func(vector int, regs idt.Regs_t) {
		trap.Handle(vector, trap.Regs_t(regs))
	})
	idt.SetIRQHandler(func(irq int) {
		switch irq {
		case 1:
			cons.OnScanCode()
			cons.Drain()
		case 8:
			rtc.Handler()
		}
	})
	idt.SetIRQ0Handler(sched.Tick)
	idt.SetSyscallHandler(dispatchSyscall)

	arch.LoadTSS(proc.KstackTop(0))
	arch.Sti()

	// Group 0's first shell is started directly: Tick's bootstrap hook
	// only ever fires for the group IRQ0 rotates *onto*, never the one
	// it starts on, so group 0 needs this one explicit kick. Execute
	// does not return until every descendant of this shell has halted —
	// main() has nothing left to do once it's called, by design.
	scall.Execute(0, "shell")

	for {
		arch.Halt()
	}
}

// dispatchSyscall is int 0x80's Go-side handler: num is the selector in
// EAX, a1/a2/a3 are EBX/ECX/EDX, exactly the original's syscall calling
// convention. User-space pointers among the arguments are read directly
// through unsafe.Pointer: the caller's 4MiB program slot is always the
// one currently mapped at bounds.UserProgVirt when a trap lands here, so
// any address the running process could legally form already resolves
// correctly under the live page directory.
func dispatchSyscall(num, a1, a2, a3 uint32) uint32 {
	group := sched.CurrentGroup()
	switch int(num) {
	case defs.SYS_HALT:
		return uint32(scall.Halt(group, uint8(a1), false))
	case defs.SYS_EXECUTE:
		return uint32(scall.Execute(group, userCString(a1)))
	case defs.SYS_READ:
		n, err := scall.Read(group, int(a1), userBytes(a2, a3))
		if err != 0 {
			return uint32(err)
		}
		return uint32(n)
	case defs.SYS_WRITE:
		n, err := scall.Write(group, int(a1), userBytes(a2, a3))
		if err != 0 {
			return uint32(err)
		}
		return uint32(n)
	case defs.SYS_OPEN:
		fd, err := scall.Open(group, userCString(a1))
		if err != 0 {
			return uint32(err)
		}
		return uint32(fd)
	case defs.SYS_CLOSE:
		return uint32(scall.Close(group, int(a1)))
	case defs.SYS_GETARGS:
		return uint32(scall.Getargs(group, userBytes(a1, a2)))
	case defs.SYS_VIDMAP:
		return uint32(scall.Vidmap(group, (*uint32)(unsafe.Pointer(uintptr(a1)))))
	default:
		return uint32(-defs.EINVAL)
	}
}

// userBytes views length bytes at user virtual address addr as a slice,
// for the read/write/getargs calls that hand the kernel a buffer pointer
// rather than a fixed-size value.
func userBytes(addr, length uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), int(length))
}

// userCString reads a NUL-terminated string out of user space, capped at
// the longest command line execute()/open() ever accept.
func userCString(addr uint32) string {
	const max = bounds.ArgMax + bounds.NameMax + 2
	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), max)
	n := 0
	for n < max && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}
