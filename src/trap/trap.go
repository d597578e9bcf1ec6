// Package trap dispatches the 20 CPU exception vectors. All 20 share one
// path, grounded in the original's idt.c: print the exception's name and
// kill the current process with status 256. This nucleus additionally
// reports the faulting group/pid/registers and, when the faulting EIP is
// legible (inside the identity-mapped kernel region), a one-instruction
// disassembly via x86asm — the kind of crash context biscuit's
// caller.Callerdump gives a panicking Go goroutine, adapted here to a
// flat-binary x86 user program instead of a Go stack.
package trap

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"mem"
	"sched"

	"cons"
	"scall"
)

// exceptionNames mirrors idt.c's ExceptionCode table, indexed by vector.
var exceptionNames = [20]string{
	"Division Error",
	"Debug Exception",
	"NMI Interrupt",
	"Breakpoint Exception",
	"Overflow Exception",
	"Bound Range Exceeded Exception",
	"Invalid Opcode Exception",
	"Device Not Available Exception",
	"Double Fault Exception",
	"Coprocessor Segment Overrun",
	"TSS Exception",
	"Segment Not Present",
	"Stack Fault Exception",
	"General Protection Exception",
	"Page Fault Exception",
	"Assertion Exception",
	"FPU Floating Point Error",
	"Alignment Check Exception",
	"Machine Check Exception",
	"SIMD Floating Point Exception",
}

// Regs_t is the register snapshot the common exception stub pushes before
// calling into Go, matching the pusha-then-vector layout the original's
// common_exc assembly builds.
type Regs_t struct {
	Eax, Ebx, Ecx, Edx uint32
	Esi, Edi, Ebp, Esp uint32
	Eip, Cs, Eflags    uint32
}

// kernelRegionStart and kernelRegionEnd bound the identity-mapped 4MiB
// kernel region whose raw instruction bytes this nucleus can safely read
// back for disassembly, mirroring the directory slot vm.New installs.
const (
	kernelRegionStart = 4 * 1024 * 1024
	kernelRegionEnd   = 8 * 1024 * 1024
)

// Handle runs on any of the 20 CPU exception vectors: prints a fault
// report naming the vector, the faulting group/pid, the register
// snapshot, and (when legible) the disassembled faulting instruction,
// then kills the current process exactly as the original's common
// exception handler does — unconditionally, with no recovery path.
func Handle(vector int, regs Regs_t) {
	group := sched.CurrentGroup()
	pid := sched.ActivePid(group)

	name := "Unknown Exception"
	if vector >= 0 && vector < len(exceptionNames) {
		name = exceptionNames[vector]
	}

	report := fmt.Sprintf("%s (vector %d) in group %d pid %d\n", name, vector, group, pid)
	report += fmt.Sprintf("eip=%#08x cs=%#04x eflags=%#08x esp=%#08x ebp=%#08x\n",
		regs.Eip, regs.Cs, regs.Eflags, regs.Esp, regs.Ebp)
	report += fmt.Sprintf("eax=%#08x ebx=%#08x ecx=%#08x edx=%#08x esi=%#08x edi=%#08x\n",
		regs.Eax, regs.Ebx, regs.Ecx, regs.Edx, regs.Esi, regs.Edi)

	if dis, ok := disassemble(regs.Eip); ok {
		report += "faulting instruction: " + dis + "\n"
	}

	cons.Write(group, []byte(report))

	scall.Halt(group, 0, true)
}

// disassemble decodes the one instruction at eip, when eip falls inside
// the identity-mapped kernel region this nucleus can read raw bytes from
// without faulting a second time. User-program EIPs (the overwhelming
// majority of faults in a teaching kernel) are not attempted: their
// backing page may itself be why the fault happened.
func disassemble(eip uint32) (string, bool) {
	if eip < kernelRegionStart || eip >= kernelRegionEnd {
		return "", false
	}
	const maxInstrLen = 15
	buf := mem.Dmaplen(mem.Pa_t(eip), maxInstrLen)

	inst, err := x86asm.Decode(buf, 32)
	if err != nil {
		return "", false
	}
	return x86asm.GNUSyntax(inst, uint64(eip), nil), true
}
