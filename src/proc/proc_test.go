package proc

import (
	"testing"

	"bounds"
	"defs"
)

// fakeFd counts Close calls, standing in for any fdops.Fdops_i
// implementation without pulling in a real device.
type fakeFd struct {
	closed int
}

func (f *fakeFd) Read(buf []byte) (int, defs.Err_t)  { return 0, 0 }
func (f *fakeFd) Write(buf []byte) (int, defs.Err_t) { return 0, 0 }
func (f *fakeFd) Close() defs.Err_t                  { f.closed++; return 0 }

func TestAllocExhaustsPool(t *testing.T) {
	Init()
	for pid := 1; pid < bounds.Nprocs; pid++ {
		pcb, err := Alloc()
		if err != 0 {
			t.Fatalf("Alloc() for pid %d failed: %d", pid, err)
		}
		if pcb.Pid != pid {
			t.Fatalf("Alloc() gave pid %d, want %d (linear scan order)", pcb.Pid, pid)
		}
	}
	if _, err := Alloc(); err != -defs.EAGAIN {
		t.Fatalf("Alloc() past the pool size = %d, want -EAGAIN", err)
	}
}

func TestFreeReturnsSlotToPool(t *testing.T) {
	Init()
	for pid := 1; pid < bounds.Nprocs; pid++ {
		Alloc()
	}
	Free(3)
	pcb, err := Alloc()
	if err != 0 || pcb.Pid != 3 {
		t.Fatalf("Alloc() after Free(3) = (pid %d, err %d), want (3, 0)", pcb.Pid, err)
	}
}

func TestFreeIgnoresPidZero(t *testing.T) {
	Init()
	Free(0)
	if Get(0) == nil {
		t.Fatalf("Free(0) must not free the kernel's own slot")
	}
}

func TestGetRejectsOutOfRangeOrUnusedPid(t *testing.T) {
	Init()
	cases := []int{-1, bounds.Nprocs, bounds.Nprocs + 5, 2}
	for _, pid := range cases {
		if Get(pid) != nil {
			t.Fatalf("Get(%d) = non-nil, want nil", pid)
		}
	}
	if Get(0) == nil {
		t.Fatalf("Get(0) = nil, want the kernel's PCB")
	}
}

func TestFdTableExhaustion(t *testing.T) {
	Init()
	pcb, err := Alloc()
	if err != 0 {
		t.Fatalf("Alloc: %d", err)
	}
	for i := 0; i < bounds.Nfds; i++ {
		if _, err := pcb.FdAlloc(&fakeFd{}); err != 0 {
			t.Fatalf("FdAlloc() call %d (of %d slots) failed: %d", i+1, bounds.Nfds, err)
		}
	}
	// Every slot, including the two a caller would otherwise reserve for
	// stdin/stdout, is now in use: the next open must fail.
	if _, err := pcb.FdAlloc(&fakeFd{}); err != -defs.EAGAIN {
		t.Fatalf("FdAlloc() beyond the %d-slot table = %d, want -EAGAIN", bounds.Nfds, err)
	}
}

func TestFdFreeRejectsUnknownFd(t *testing.T) {
	Init()
	pcb, _ := Alloc()
	if err := pcb.FdFree(0); err != -defs.EBADF {
		t.Fatalf("FdFree(never-allocated fd) = %d, want -EBADF", err)
	}
	if err := pcb.FdFree(-1); err != -defs.EBADF {
		t.Fatalf("FdFree(-1) = %d, want -EBADF", err)
	}
	if err := pcb.FdFree(bounds.Nfds); err != -defs.EBADF {
		t.Fatalf("FdFree(out of range) = %d, want -EBADF", err)
	}
}

func TestFdFreeClosesAndClearsSlot(t *testing.T) {
	Init()
	pcb, _ := Alloc()
	f := &fakeFd{}
	fd, _ := pcb.FdAlloc(f)

	if err := pcb.FdFree(fd); err != 0 {
		t.Fatalf("FdFree: %d", err)
	}
	if f.closed != 1 {
		t.Fatalf("FdFree did not Close the underlying fdops.Fdops_i")
	}
	if pcb.FdGet(fd) != nil {
		t.Fatalf("FdGet after FdFree = non-nil, want nil")
	}
	// The slot must be reusable.
	fd2, err := pcb.FdAlloc(&fakeFd{})
	if err != 0 || fd2 != fd {
		t.Fatalf("FdAlloc did not reuse the freed slot: got fd %d err %d", fd2, err)
	}
}

func TestCloseAllClosesEveryOpenFd(t *testing.T) {
	Init()
	pcb, _ := Alloc()
	fakes := make([]*fakeFd, 3)
	for i := range fakes {
		fakes[i] = &fakeFd{}
		pcb.FdAlloc(fakes[i])
	}
	pcb.CloseAll()
	for i, f := range fakes {
		if f.closed != 1 {
			t.Fatalf("fd %d not closed by CloseAll", i)
		}
	}
}

func TestKstackTopAndPcbPhysAddrSpacing(t *testing.T) {
	const kstackSize = 8 * 1024
	for pid := 0; pid < bounds.Nprocs; pid++ {
		got := KstackTop(pid)
		want := uint32(bounds.UserProgPhysBase) - uint32(kstackSize)*uint32(pid) - 4
		if got != want {
			t.Fatalf("KstackTop(%d) = %#x, want %#x", pid, got, want)
		}
	}
	// Consecutive pids' PCB blocks must not overlap.
	if PcbPhysAddr(0)-PcbPhysAddr(1) != kstackSize {
		t.Fatalf("PcbPhysAddr spacing != kstackSize between adjacent pids")
	}
}
