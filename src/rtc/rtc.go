// Package rtc virtualizes the one physical CMOS real-time clock into an
// independent periodic-interrupt source per process group. The chip is
// programmed once, at its maximum rate; each group's Read call blocks
// until the handler has counted enough physical ticks to satisfy that
// group's own logical rate.
//
// Grounded in the original's rtc.c, with the REDESIGN FLAGS correction to
// the rate-divider arithmetic: the original computes
// rtc_freq_divider[group] = input*4 and compares against 1024/that value,
// which is algebraically 1024/(input*4), not 1024/input. This package
// implements the corrected, spec-intended semantics directly.
package rtc

import (
	"bounds"
	"defs"

	"arch"
	"pic"
)

const (
	irq8   = 8
	port0  = 0x70
	port1  = 0x71
	regA   = 0x8A // select register A, NMI disabled
	regB   = 0x8B // select register B, NMI disabled
	regC   = 0x0C
	pieBit = 0x40 // register B periodic-interrupt-enable bit
)

var (
	divider [bounds.Ngroups]int
	waiting [bounds.Ngroups]bool
	ticks   [bounds.Ngroups]int
)

// Init programs register B's periodic-interrupt-enable bit, leaving
// register A at its power-on divider (1024Hz with a 32.768kHz crystal),
// and enables IRQ8.
func Init() {
	flags := arch.CliSave()
	defer arch.StiRestore(flags)

	arch.Outb(port0, regB)
	prev := arch.Inb(port1)
	arch.Outb(port0, regB)
	arch.Outb(port1, prev|pieBit)

	for g := range divider {
		divider[g] = bounds.RtcMinHz
	}

	pic.Enable(irq8)
}

// Open reinitializes group's virtualized RTC to the default 2Hz.
func Open(group int) {
	divider[group] = bounds.RtcMinHz
	waiting[group] = false
	ticks[group] = 0
}

// Read blocks (interrupts enabled, busy-wait) until Handler has observed
// 1024/divider[group] physical ticks since this call started.
func Read(group int) {
	waiting[group] = true
	ticks[group] = 0
	for waiting[group] {
	}
}

// Write sets group's logical rate to hz, which must be a power of two in
// [RtcMinHz, RtcMaxHz].
func Write(group, hz int) defs.Err_t {
	if !powerOfTwo(hz) || hz < bounds.RtcMinHz || hz > bounds.RtcMaxHz {
		return -defs.EINVAL
	}
	flags := arch.CliSave()
	divider[group] = hz
	arch.StiRestore(flags)
	return 0
}

// Close does nothing and returns 0: the fd table slot is cleared by the
// caller (proc's FdFree), and the RTC itself keeps running for any other
// group still reading it.
func Close(group, fd int) defs.Err_t {
	_ = group
	_ = fd
	return 0
}

// Handler runs on every physical IRQ8: for each group waiting, advance its
// tick count and clear waiting once it has accumulated enough physical
// ticks for its logical rate, then re-arm the chip by reading register C.
func Handler() {
	pic.Disable(irq8)
	pic.EOI(irq8)

	for g := range waiting {
		if !waiting[g] {
			continue
		}
		ticks[g]++
		if ticks[g] >= bounds.RtcPhysHz/divider[g] {
			waiting[g] = false
		}
	}

	arch.Outb(port0, regC)
	arch.Inb(port1)

	pic.Enable(irq8)
}

func powerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
