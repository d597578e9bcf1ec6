// Package arch declares the handful of i386 primitives the nucleus needs
// that Go cannot express directly: port I/O, control-register access, and
// interrupt masking. Each is a body-less Go function backed by a hand
// written assembly stub, the same declare-in-Go/define-in-asm split
// gopher-os uses for its cpu package.
package arch

// Outb writes val to I/O port.
func Outb(port uint16, val uint8)

// Inb reads a byte from I/O port.
func Inb(port uint16) uint8

// Cli disables maskable interrupts.
func Cli()

// Sti enables maskable interrupts.
func Sti()

// Halt executes HLT, parking the CPU until the next interrupt.
func Halt()

// LoadCR3 loads the page-directory base register, which also flushes the
// entire TLB.
func LoadCR3(pdbr uintptr)

// FlushTLB reloads CR3 with its current value, the cheapest
// whole-TLB-flush idiom on a single-core machine with no PCID support.
func FlushTLB()

// EnablePSE sets CR4.PSE, enabling 4MiB page-directory entries.
func EnablePSE()

// EnablePaging sets CR0.PG.
func EnablePaging()

// CliSave disables interrupts and returns the prior EFLAGS.IF so the
// caller can restore it with StiRestore. Mirrors the original's
// cli_and_save/restore_flags bracket, the sole synchronization primitive
// in a single-kernel-thread nucleus.
func CliSave() uintptr

// StiRestore restores EFLAGS.IF from a value obtained from CliSave.
func StiRestore(flags uintptr)

// SaveKernelStack stores the current ESP/EBP into *esp/*ebp, the same
// inline-asm snapshot schedule_next takes of the process being paused
// before handing the CPU to the next one.
func SaveKernelStack(esp, ebp *uint32)

// RestoreKernelStack loads ESP/EBP from esp/ebp, resuming the kernel
// stack schedule_next had earlier saved for the process being unpaused.
// Control returns to whatever RET address that stack's top holds, not to
// this function's caller.
func RestoreKernelStack(esp, ebp uint32)

// TssEsp0 mirrors the hardware TSS's esp0 field (the kernel stack the CPU
// switches to on a ring3->ring0 interrupt). LoadTSS is the only writer;
// exported so the linker can resolve ·TssEsp0 from the assembly stub.
var TssEsp0 uint32

// LoadTSS updates the hardware task state segment's esp0 field so the
// next ring3->ring0 interrupt lands on esp0, mirroring the
// tss.esp0 assignment in schedule_next. ss0 is the kernel's flat data
// selector and never varies between processes, so only esp0 is plumbed
// through here.
func LoadTSS(esp0 uint32)

// GDT selectors this nucleus's descriptor table is built with, matching
// the layout system.c's inline asm hard-codes.
const (
	KernelCS = 0x10
	KernelDS = 0x18
	UserCS   = 0x23
	UserDS   = 0x2B
)

// RunUser saves the caller's kernel ESP/EBP into *savedEsp/*savedEbp and
// builds a ring-3 IRET frame that starts execution at eip with stack esp,
// EFLAGS.IF set and the user data/stack selectors. It does not return the
// way an ordinary call does: control comes back only when some later
// RestoreKernelStack(*savedEsp, *savedEbp) call resumes precisely this
// saved stack, at which point RunUser falls through to an ordinary
// return. Mirrors system_execute's single inline-asm block that both
// snapshots the parent's register state and IRETs into the child in one
// breath.
func RunUser(savedEsp, savedEbp *uint32, eip, esp uint32)
