// Package idt builds the interrupt descriptor table and the common
// exception/IRQ/syscall entry stubs every vector shares, then dispatches
// into Go through the same function-injection pattern sched already uses
// for its cross-package hooks: idt cannot import trap, sched, cons, rtc,
// or scall (several of those already sit above it in the dependency
// order), so cmd/kernel wires each handler in at boot instead. Grounded in
// the original's idt.c table-construction/linkage split against the
// per-vector assembly stubs GCC's inline asm builds by hand there.
package idt

import (
	"reflect"
	"unsafe"

	"arch"
)

const (
	nvec        = 20   // CPU exception vectors this nucleus installs
	irqBase     = 0x20 // vector offset pic.Init remaps IRQ0-7 to
	syscallVec  = 0x80
	gatePresent = 0x8E00 // present, DPL0, 32-bit interrupt gate
	gateUser    = 0xEE00 // present, DPL3, 32-bit interrupt gate (int 0x80 only)
)

// / Regs_t is the register snapshot every entry stub saves before calling
// / into Go. Field order and types must match trap.Regs_t exactly — the
// / two are distinct types (idt cannot import trap) related only by a
// / same-shape conversion at the call site cmd/kernel wires.
type Regs_t struct {
	Eax, Ebx, Ecx, Edx uint32
	Esi, Edi, Ebp, Esp uint32
	Eip, Cs, Eflags    uint32
}

// / gate is one 8-byte IDT descriptor, laid out exactly as the hardware
// / reads it.
type gate struct {
	offsetLow  uint16
	selector   uint16
	flags      uint16
	offsetHigh uint16
}

var table [256]gate

var (
	exceptionHandler = func(vector int, regs Regs_t) {}
	irqHandler       = func(irq int) {}
	irq0Handler      = func(frameTop, pushedCS uint32) {}
	syscallHandler   = func(num, a1, a2, a3 uint32) uint32 { return 0 }
)

// SetExceptionHandler installs the Go function every one of the 20 CPU
// exception stubs calls after saving Regs_t.
func SetExceptionHandler(f func(vector int, regs Regs_t)) {
	exceptionHandler = f
}

// SetIRQHandler installs the Go function the IRQ1 (keyboard) and IRQ8
// (RTC) stubs call with their IRQ number. Neither needs a register
// snapshot the way a fault report does.
func SetIRQHandler(f func(irq int)) {
	irqHandler = f
}

// SetIRQ0Handler installs the Go function the timer stub calls on every
// tick. IRQ0 carries sched.Tick's own, richer signature instead of a bare
// irq number: frameTop (the address of the CPU's pushed EIP, the base of
// the hardware interrupt frame) and pushedCS (the selector pushed
// alongside it) are exactly what Tick's +5/+3-word arithmetic needs to
// compute the interrupted process's tss.esp0, and nothing else on this
// path ever needs a full Regs_t.
func SetIRQ0Handler(f func(frameTop, pushedCS uint32)) {
	irq0Handler = f
}

// SetSyscallHandler installs the Go function the int 0x80 stub calls with
// the selector (EAX) and three arguments (EBX, ECX, EDX), matching the
// original's syscall calling convention. Its uint32 return value is
// written back into EAX before IRET, exactly like a negative Err_t or a
// byte count.
func SetSyscallHandler(f func(num, a1, a2, a3 uint32) uint32) {
	syscallHandler = f
}

// dispatchException, dispatchIRQ, and dispatchSyscall are the only Go
// symbols the hand-written entry stubs in idt_386.s call. They take and
// return values purely through pointers/plain words rather than Go's
// usual multi-value returns, so the stub's hand-rolled stack layout for a
// call into Go code stays simple: reserve the argument words, fill them,
// CALL, done.
func dispatchException(vector uint32, regs *Regs_t) {
	exceptionHandler(int(vector), *regs)
}

func dispatchIRQ(irq uint32) {
	irqHandler(int(irq))
}

func dispatchTick(frameTop, pushedCS uint32) {
	irq0Handler(frameTop, pushedCS)
}

func dispatchSyscall(num, a1, a2, a3 uint32, ret *uint32) {
	*ret = syscallHandler(num, a1, a2, a3)
}

// exc0..exc19 are the 20 per-vector entry points, each a few instructions
// of hand-written assembly (push a dummy error code if the CPU doesn't
// supply one, push the vector number, jump to the shared tail) living in
// idt_386.s. Declaring them as a Go func array lets Install locate their
// addresses with reflect instead of a 20-case switch or a second,
// parallel assembly jump table.
func exc0()
func exc1()
func exc2()
func exc3()
func exc4()
func exc5()
func exc6()
func exc7()
func exc8()
func exc9()
func exc10()
func exc11()
func exc12()
func exc13()
func exc14()
func exc15()
func exc16()
func exc17()
func exc18()
func exc19()

var excStubs = [nvec]func(){
	exc0, exc1, exc2, exc3, exc4, exc5, exc6, exc7, exc8, exc9,
	exc10, exc11, exc12, exc13, exc14, exc15, exc16, exc17, exc18, exc19,
}

func irq0Stub()
func irq1Stub()
func irq8Stub()
func syscallStub()

// lidt loads the IDT register from base/limit, mirroring the lidt inline
// asm in the original's idt.c init path.
func lidt(base uintptr, limit uint16)

func funcAddr(f func()) uintptr {
	return reflect.ValueOf(f).Pointer()
}

func setGate(vector int, handler uintptr, flags uint16) {
	table[vector] = gate{
		offsetLow:  uint16(handler),
		selector:   arch.KernelCS,
		flags:      flags,
		offsetHigh: uint16(handler >> 16),
	}
}

// Install builds all 256 IDT entries (the 20 CPU exceptions, the three
// IRQ vectors this nucleus actually uses, and int 0x80 at user DPL) and
// loads the table. Called once, at boot, after pic.Init has remapped the
// PIC past the CPU's own exception range.
func Install() {
	for v := 0; v < nvec; v++ {
		setGate(v, funcAddr(excStubs[v]), gatePresent)
	}
	setGate(irqBase+0, funcAddr(irq0Stub), gatePresent)
	setGate(irqBase+1, funcAddr(irq1Stub), gatePresent)
	setGate(irqBase+8, funcAddr(irq8Stub), gatePresent)
	setGate(syscallVec, funcAddr(syscallStub), gateUser)

	base := uintptr(unsafe.Pointer(&table[0]))
	lidt(base, uint16(len(table)*8-1))
}
