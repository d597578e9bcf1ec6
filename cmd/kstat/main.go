// Command kstat reads a JSON stats.Snapshot dump (written by whatever debug
// channel the running nucleus is wired to — a serial-port tee in the
// simplest case, since this teaching kernel has no network stack to serve
// the dump itself) and renders it as a pprof profile: one sample per group,
// valued by its preemption-tick count, so `go tool pprof` can be pointed at
// a running or crashed nucleus's scheduling history the same way it would
// at any other Go program's CPU profile.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/pprof/profile"

	"bounds"
	"stats"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <snapshot.json> <out.pprof>\n", os.Args[0])
		os.Exit(1)
	}
	snapPath, outPath := os.Args[1], os.Args[2]

	raw, err := os.ReadFile(snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var snap stats.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		fmt.Fprintln(os.Stderr, "parsing snapshot:", err)
		os.Exit(1)
	}

	prof := buildProfile(snap)

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer out.Close()
	if err := prof.Write(out); err != nil {
		fmt.Fprintln(os.Stderr, "writing profile:", err)
		os.Exit(1)
	}
}

// buildProfile turns one tick-count-per-group snapshot into a pprof
// Profile with a synthetic call stack of depth one, "group<N>", so each
// group's share of total preemptions is visible as a flame-graph leaf.
func buildProfile(snap stats.Snapshot) *profile.Profile {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "ticks", Unit: "count"},
		},
		PeriodType: &profile.ValueType{Type: "ticks", Unit: "count"},
		Period:     1,
	}

	for g := 0; g < bounds.Ngroups; g++ {
		fn := &profile.Function{
			ID:   uint64(g + 1),
			Name: fmt.Sprintf("group%d", g),
		}
		loc := &profile.Location{
			ID:   uint64(g + 1),
			Line: []profile.Line{{Function: fn, Line: 1}},
		}
		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{int64(snap.GroupTicks[g])},
		})
	}
	return prof
}
