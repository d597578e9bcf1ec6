// Package fdops declares the operation vtable every file-descriptor slot
// dispatches through, generalized from biscuit's Fdops_i/Fd_t split down
// to this nucleus's fixed, non-refcounted, per-process slot: a teaching
// kernel never shares one open descriptor across processes, so there is
// no Reopen/dup story to carry.
package fdops

import "defs"

// / Fdops_i is implemented by every kind of open file this nucleus knows:
// / a regular file, a directory, the RTC device, or a terminal endpoint
// / (stdin/stdout). Read or Write return -defs.EINVAL for directions the
// / underlying kind does not support (e.g. Write on a regular file).
type Fdops_i interface {
	Read(buf []byte) (int, defs.Err_t)
	Write(buf []byte) (int, defs.Err_t)
	Close() defs.Err_t
}
