// Package stats is a read-only snapshot of sched's per-group preemption
// counters, formatted for cmd/kstat to render through pprof's profile
// format. pic keeps no counters, so none are included.
// Grounded in biscuit's stats.Stats2String convention of gathering a
// struct of counters for external consumption, simplified from that
// package's reflection-based dump (this nucleus's counter set is fixed
// and small enough to name directly) down to a plain snapshot struct.
package stats

import (
	"bounds"
	"sched"
)

// / Snapshot is one point-in-time read of every per-group preemption
// / counter this nucleus keeps.
type Snapshot struct {
	GroupTicks [bounds.Ngroups]uint64
}

// Take reads the current counters. Safe to call from outside interrupt
// context; sched's counters are only ever incremented, never
// read-modify-written by more than Tick itself.
func Take() Snapshot {
	var s Snapshot
	for g := 0; g < bounds.Ngroups; g++ {
		s.GroupTicks[g] = sched.Ticks(g)
	}
	return s
}
