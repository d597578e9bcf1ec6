// Package sched is the round-robin scheduler: one running pid per group,
// advanced on every PIT IRQ0, ported near-verbatim from the original's
// schedule_next for the interrupt-frame arithmetic that locates the
// interrupted process's kernel-stack top.
package sched

import (
	"bounds"
	"mem"
	"proc"

	"arch"
	"pic"
	"vm"
)

const irq0 = 0

// entrySize is the size in bytes of one word the CPU pushes onto the
// kernel stack on a ring-3 -> ring-0 interrupt (EIP, CS, EFLAGS, and, only
// when the interrupted context was ring 3, ESP and SS).
const entrySize = 4

// cplMask and cpl3 pick the privilege-level bits out of a pushed CS
// selector.
const (
	cplMask = 0x3
	cpl3    = 0x3
)

var (
	activePid    [bounds.Ngroups]int
	currentGroup int
	ticks        [bounds.Ngroups]uint64

	pd *vm.Pagedir_t
)

// Init sets the starting group to 0 and marks every group's active pid as
// -1 ("no process yet") so the first Tick to rotate onto it finds
// proc.Get(-1) == nil and calls bootstrapGroup rather than mistaking the
// zero value for pid 0, the kernel's own always-in-use PCB. Callers
// install a real pid into activePid[group] themselves (via SetActivePid)
// once each group's first shell has been allocated one.
func Init(pagedir *vm.Pagedir_t) {
	currentGroup = 0
	pd = pagedir
	for g := range activePid {
		activePid[g] = -1
	}
}

// CurrentGroup reports the group currently owning the CPU.
func CurrentGroup() int {
	return currentGroup
}

// ActivePid returns the pid currently scheduled for group.
func ActivePid(group int) int {
	return activePid[group]
}

// SetActivePid installs pid as the process currently scheduled for group,
// called once at boot per group and again by scall.Halt's shell-respawn
// path.
func SetActivePid(group, pid int) {
	activePid[group] = pid
}

// Ticks returns the number of preemptions group has been scheduled
// through, for cmd/kstat.
func Ticks(group int) uint64 {
	return ticks[group]
}

// bootstrapGroup is cmd/kernel's hook for starting a group's very first
// shell the first time Tick rotates onto it. sched cannot import scall
// directly (scall already imports sched to read/set the active pid), so
// cmd/kernel wires this once at boot instead.
var bootstrapGroup = func(group int) {}

// SetBootstrap installs the function Tick calls the first time it rotates
// onto a group with no active process yet.
func SetBootstrap(f func(group int)) {
	bootstrapGroup = f
}

// Tick runs on every PIT IRQ0: EOIs the interrupt, saves the outgoing
// process's kernel stack pointer and tss.esp0, advances currentGroup,
// re-points the user-program and user-video slots at the incoming
// process, and restores its kernel stack — mirroring schedule_next
// exactly, including the +5/+3-word frame arithmetic that depends on
// whether the interrupted context was running in ring 3 or ring 0.
func Tick(frameTop, pushedCS uint32) {
	pic.EOI(irq0)

	oldGroup := currentGroup
	currentGroup = (currentGroup + 1) % bounds.Ngroups
	ticks[currentGroup]++

	oldPid := activePid[oldGroup]
	newPid := activePid[currentGroup]

	oldPcb := proc.Get(oldPid)
	if oldPcb == nil {
		return
	}

	if pushedCS&cplMask == cpl3 {
		oldPcb.TssEsp0 = frameTop + 5*entrySize
	} else {
		oldPcb.TssEsp0 = frameTop + 3*entrySize
	}
	arch.SaveKernelStack(&oldPcb.KernEsp, &oldPcb.KernEbp)

	newPcb := proc.Get(newPid)
	if newPcb == nil {
		// This group has never had a process: its very first shell
		// starts now, on the spot, the same way every later root-shell
		// respawn happens inside Halt — neither call returns here in
		// the ordinary sense, both end in an IRET into ring 3. oldPcb's
		// stack is already saved above, so rotating back to it later
		// restores exactly this point.
		bootstrapGroup(currentGroup)
		return
	}

	remapVideo(newPcb, currentGroup)
	pd.MapUserProgram(bounds.UserProgVirt, newPcb.Pid)

	arch.LoadTSS(newPcb.TssEsp0)
	arch.RestoreKernelStack(newPcb.KernEsp, newPcb.KernEbp)
}

// remapVideo repoints the one user-video slot for the incoming process:
// live framebuffer if it is in the visible group and has called vidmap,
// its own shadow page if it has called vidmap but isn't visible, and
// fully unmapped if it never called vidmap at all.
func remapVideo(p *proc.Pcb_t, group int) {
	if !p.VidMap {
		pd.UnmapUserVideo(bounds.UserVideoVirt)
		return
	}
	pd.MapUserVideo(bounds.UserVideoVirt, videoPhysFor(group))
}

// videoPhysFor is overridden by cmd/kernel; sched cannot import cons
// directly (cons already depends on vm for its own video mapping during
// Init, and sched depending on cons too would tangle the two packages'
// shared use of vm.Pagedir_t) so the physical address of the incoming
// group's framebuffer is supplied through this indirection instead.
var videoPhysFor = func(group int) mem.Pa_t { return 0 }

// SetVideoPhysResolver lets cmd/kernel wire sched's video remap step to
// cons's live/shadow framebuffer addresses without an import cycle.
func SetVideoPhysResolver(f func(group int) mem.Pa_t) {
	videoPhysFor = f
}
