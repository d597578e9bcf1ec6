// Package pit programs channel 0 of the 8253/8254 timer that drives the
// scheduler's preemption tick. It owns only the chip's rate; the IRQ0
// handler itself lives in sched.
package pit

import (
	"arch"
	"pic"
)

const (
	ch0Data    = 0x40
	modeCmd    = 0x43
	modeSquare = 0x36 // channel 0, lobyte/hibyte, mode 3 (square wave), binary

	irq0 = 0

	// baseHz is the PIT's fixed input clock.
	baseHz = 1193182
)

// Init programs channel 0 for a periodic interrupt at hz (rounded down to
// the nearest integer divisor of the base clock), matching the original's
// fixed ~40Hz (25ms) reload value but letting callers tune it, then
// unmasks IRQ0 so the scheduler actually starts ticking.
func Init(hz int) {
	flags := arch.CliSave()
	defer arch.StiRestore(flags)

	reload := uint16(baseHz / hz)
	arch.Outb(modeCmd, modeSquare)
	arch.Outb(ch0Data, uint8(reload&0xFF))
	arch.Outb(ch0Data, uint8(reload>>8))

	pic.Enable(irq0)
}
