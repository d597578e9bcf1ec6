package scall

import (
	"testing"

	"defs"
	"proc"
	"sched"
)

func TestCloseRejectsReservedStdioFds(t *testing.T) {
	proc.Init()
	sched.Init(nil)
	pcb, err := proc.Alloc()
	if err != 0 {
		t.Fatalf("proc.Alloc: %d", err)
	}
	sched.SetActivePid(0, pcb.Pid)

	for _, fd := range []int{0, 1} {
		if err := Close(0, fd); err != -defs.EBADF {
			t.Fatalf("Close(group, %d) = %d, want -EBADF", fd, err)
		}
	}
}

func TestCloseOfUnopenedNonStdioFdFails(t *testing.T) {
	proc.Init()
	sched.Init(nil)
	pcb, _ := proc.Alloc()
	sched.SetActivePid(0, pcb.Pid)

	if err := Close(0, 2); err != -defs.EBADF {
		t.Fatalf("Close(never-opened fd) = %d, want -EBADF", err)
	}
}

func TestGetargsRejectsBufferTooSmallForStoredArgs(t *testing.T) {
	proc.Init()
	sched.Init(nil)
	pcb, _ := proc.Alloc()
	sched.SetActivePid(0, pcb.Pid)

	copy(pcb.Args[:], "a b c")
	pcb.ArgsLen = len("a b c")

	buf := make([]byte, 3) // too small for "a b c\x00"
	if err := Getargs(0, buf); err != -defs.EINVAL {
		t.Fatalf("Getargs(undersized buffer) = %d, want -EINVAL", err)
	}

	buf = make([]byte, pcb.ArgsLen+1)
	if err := Getargs(0, buf); err != 0 {
		t.Fatalf("Getargs(exact-size buffer) = %d, want 0", err)
	}
	if string(buf[:pcb.ArgsLen]) != "a b c" || buf[pcb.ArgsLen] != 0 {
		t.Fatalf("Getargs copied %q, want NUL-terminated \"a b c\"", buf)
	}
}

func TestGetargsRejectsEmptyArgs(t *testing.T) {
	proc.Init()
	sched.Init(nil)
	pcb, _ := proc.Alloc()
	sched.SetActivePid(0, pcb.Pid)

	if err := Getargs(0, make([]byte, 16)); err != -defs.EINVAL {
		t.Fatalf("Getargs with no stored args = %d, want -EINVAL", err)
	}
}
