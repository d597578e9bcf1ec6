package sched

import (
	"testing"

	"bounds"
	"proc"

	"arch"
)

func TestInitSeedsEveryGroupWithNoActiveProcess(t *testing.T) {
	Init(nil)
	for g := 0; g < bounds.Ngroups; g++ {
		if ActivePid(g) != -1 {
			t.Fatalf("ActivePid(%d) after Init = %d, want -1", g, ActivePid(g))
		}
	}
	if CurrentGroup() != 0 {
		t.Fatalf("CurrentGroup() after Init = %d, want 0", CurrentGroup())
	}
}

func TestSetActivePidIsVisibleThroughActivePid(t *testing.T) {
	Init(nil)
	SetActivePid(1, 4)
	if ActivePid(1) != 4 {
		t.Fatalf("ActivePid(1) = %d, want 4", ActivePid(1))
	}
}

// TestTickRotatesGroupsRoundRobin exercises the rotation and per-group
// tick counters with every group's active pid left at -1 (proc.Get(-1)
// is always nil), which makes Tick return right after updating
// currentGroup/ticks, before touching any PCB or the page directory.
func TestTickRotatesGroupsRoundRobin(t *testing.T) {
	Init(nil)
	SetBootstrap(func(group int) {})

	want := []int{1, 2, 0, 1, 2, 0, 1}
	for i, wantGroup := range want {
		Tick(0, arch.KernelCS)
		if CurrentGroup() != wantGroup {
			t.Fatalf("after Tick() #%d, CurrentGroup() = %d, want %d", i+1, CurrentGroup(), wantGroup)
		}
	}
	if Ticks(1) != 3 || Ticks(2) != 2 || Ticks(0) != 2 {
		t.Fatalf("per-group tick counts = (%d,%d,%d), want (2,3,2) for groups (0,1,2)", Ticks(0), Ticks(1), Ticks(2))
	}
}

// TestTickBootstrapsAGroupsFirstProcess exercises the path sched.Init's
// doc comment describes: rotating onto a group whose activePid is still
// -1 calls the installed bootstrap hook instead of touching a nil PCB.
func TestTickBootstrapsAGroupsFirstProcess(t *testing.T) {
	proc.Init()
	Init(nil)
	SetActivePid(0, 0) // group 0 has the kernel's always-present PCB running
	// group 1 is left at -1: its first shell has never started.

	var bootstrapped []int
	SetBootstrap(func(group int) { bootstrapped = append(bootstrapped, group) })

	Tick(0x1000, arch.KernelCS)

	if len(bootstrapped) != 1 || bootstrapped[0] != 1 {
		t.Fatalf("bootstrapGroup calls = %v, want exactly [1]", bootstrapped)
	}
}

func TestTickSavesRing0TssEsp0WithThreeWordFrame(t *testing.T) {
	proc.Init()
	Init(nil)
	SetActivePid(0, 0)
	SetBootstrap(func(group int) {})

	const frameTop = 0x2000
	Tick(frameTop, arch.KernelCS)

	kernel := proc.Get(0)
	want := uint32(frameTop + 3*entrySize)
	if kernel.TssEsp0 != want {
		t.Fatalf("TssEsp0 after a ring0 interrupt = %#x, want %#x", kernel.TssEsp0, want)
	}
}

func TestTickSavesRing3TssEsp0WithFiveWordFrame(t *testing.T) {
	proc.Init()
	Init(nil)
	SetActivePid(0, 0)
	SetBootstrap(func(group int) {})

	const frameTop = 0x3000
	Tick(frameTop, arch.UserCS) // UserCS's low two bits are already the RPL-3 selector

	kernel := proc.Get(0)
	want := uint32(frameTop + 5*entrySize)
	if kernel.TssEsp0 != want {
		t.Fatalf("TssEsp0 after a ring3 interrupt = %#x, want %#x", kernel.TssEsp0, want)
	}
}
