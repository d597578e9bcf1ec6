// Package cons multiplexes three virtual terminals over the one physical
// 80x25 VGA text-mode framebuffer: a line discipline grounded in the
// original's term.c/keyboard.c, group switching on Alt+F1/F2/F3, and a
// 64-byte scan-code ring (circbuf) between the keyboard IRQ handler and the
// line-discipline drain step. When more scan codes arrive than the ring
// holds before a drain, the oldest are overwritten.
package cons

import (
	"unsafe"

	"bounds"
	"mem"

	"arch"
	"circbuf"
	"pic"
	"vm"
)

const (
	irq1       = 1
	kbdDataPort = 0x60

	crtcIndex = 0x3D4
	crtcData  = 0x3D5

	tabSize = 4
)

// / terminal holds one group's cursor and line-buffer state. Grounded in
// / term.c's term_struct_t; the background framebuffer contents
// / themselves live in the group's physical shadow page (see
// / ShadowPhys/shadowVideo), not in this struct, so that the same bytes a
// / vidmap'd user process sees through its mapped page are the ones
// / cons.Write renders into.
type terminal struct {
	cursorX, cursorY int
	buf              [bounds.LinebufMax]byte
	bufLen           int
	readInProgress   bool
	newlineSeen      bool
}

var (
	terms        [bounds.Ngroups]terminal
	visibleGroup int

	scanRing        = circbuf.New(64)
	shiftHeld       bool
	ctrlHeld        bool
	altHeld         bool
	capsLock        bool
	pendingExtended bool
)

type videoPage = [bounds.VideoCols * bounds.VideoRows * 2]byte

func physVideo() *videoPage {
	return (*videoPage)(unsafe.Pointer(uintptr(bounds.VideoPhys)))
}

// ShadowPhys returns the physical address of group's background shadow
// page, for vm.MapUserVideo/sched to repoint the user-video slot at.
func ShadowPhys(group int) mem.Pa_t {
	return mem.Pa_t(bounds.VideoShadowBase + group*bounds.VideoShadowStride)
}

func shadowVideo(group int) *videoPage {
	return (*videoPage)(unsafe.Pointer(uintptr(ShadowPhys(group))))
}

// Init identity-maps the physical framebuffer and each group's shadow
// page into pd (this nucleus's one page directory), clears the screen,
// resets all three terminals' cursors to (0,0), and enables the keyboard
// IRQ.
func Init(pd *vm.Pagedir_t) {
	pd.MapPage(bounds.VideoPhys, bounds.VideoPhys, true, false, false)
	for g := 0; g < bounds.Ngroups; g++ {
		phys := ShadowPhys(g)
		pd.MapPage(mem.Pa_t(phys), phys, true, false, false)
	}

	for g := range terms {
		terms[g] = terminal{}
	}
	visibleGroup = 0
	clearScreen()
	pic.Enable(irq1)
}

// VisibleGroup reports which group currently owns the physical
// framebuffer.
func VisibleGroup() int {
	return visibleGroup
}

// OnScanCode is the keyboard IRQ handler's only job: push the raw byte
// read off the controller into the ring and EOI. All decoding happens in
// Drain.
func OnScanCode() {
	pic.Disable(irq1)
	code := arch.Inb(kbdDataPort)
	scanRing.Push(code)
	pic.EOI(irq1)
	pic.Enable(irq1)
}

// Drain decodes every scan code queued since the last call, updating
// modifier state and feeding printable output through the line
// discipline. cmd/kernel's IRQ1 handler calls it right after OnScanCode
// returns, so decoding runs inside the keyboard interrupt but never nested
// inside OnScanCode's own port read.
func Drain() {
	for {
		code, ok := scanRing.Pop()
		if !ok {
			return
		}
		decode(code)
	}
}

func decode(code byte) {
	if code == scExtendedKey {
		pendingExtended = true
		return
	}
	extended := pendingExtended
	pendingExtended = false

	release := code&scReleaseBit != 0
	key := code &^ scReleaseBit

	switch key {
	case scLeftShift, scRightShift:
		shiftHeld = !release
		return
	case scLeftCtrl:
		ctrlHeld = !release
		return
	case scLeftAlt:
		altHeld = !release
		return
	case scCapsLock:
		if !release {
			capsLock = !capsLock
		}
		return
	}

	if release {
		return
	}

	if altHeld && !extended {
		switch key {
		case scF1:
			SwitchTo(0)
			return
		case scF2:
			SwitchTo(1)
			return
		case scF3:
			SwitchTo(2)
			return
		}
	}

	if ctrlHeld && key == 0x26 { // 'l'
		clearScreen()
		return
	}

	if key == scBackspace {
		backspace()
		return
	}

	if int(key) >= len(scanTable) {
		return
	}
	row := scanTable[key]
	c := row[0]
	if shiftHeld != capsLockAppliesShift(c) {
		c = row[1]
	}
	if c == 0 {
		return
	}
	addChar(c)
}

// capsLockAppliesShift reports whether caps lock, for this character,
// acts like shift (letters only — caps lock doesn't affect punctuation
// rows on a real keyboard).
func capsLockAppliesShift(unshifted byte) bool {
	return capsLock && unshifted >= 'a' && unshifted <= 'z'
}

// addChar appends a printable character (or tab/enter/etc) to the
// visible group's line buffer and echoes it, mirroring
// __add_char_to_term.
func addChar(c byte) {
	flags := arch.CliSave()
	defer arch.StiRestore(flags)

	t := &terms[visibleGroup]
	if t.bufLen >= bounds.LinebufMax {
		return
	}
	if t.bufLen == bounds.LinebufMax-1 && c != '\n' {
		return
	}

	if c == '\t' {
		n := tabSize - (t.bufLen % tabSize)
		for i := 0; i < n; i++ {
			if t.bufLen >= bounds.LinebufMax-1 {
				break
			}
			t.buf[t.bufLen] = ' '
			t.bufLen++
			printChar(' ')
		}
		return
	}

	t.buf[t.bufLen] = c
	t.bufLen++
	printChar(c)

	if c == '\n' {
		t.newlineSeen = true
		if !t.readInProgress {
			t.bufLen = 0
		}
	}
}

func backspace() {
	flags := arch.CliSave()
	defer arch.StiRestore(flags)

	t := &terms[visibleGroup]
	if t.bufLen > 0 {
		t.bufLen--
		printChar('\b')
	}
}

// Read blocks (busy-wait, interrupts enabled) until group has a completed
// line, then copies up to len(buf) bytes of it (including the trailing
// newline) and clears the buffer.
func Read(group int, buf []byte) int {
	t := &terms[group]
	t.readInProgress = true
	t.newlineSeen = false
	for !t.newlineSeen {
	}

	flags := arch.CliSave()
	n := t.bufLen
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf[:n], t.buf[:n])
	t.bufLen = 0
	arch.StiRestore(flags)

	t.readInProgress = false
	return n
}

// Write renders buf into group's terminal: directly to the physical
// framebuffer if group is visible, otherwise into its shadow page by
// temporarily repointing the "current video base" the way term_write
// saves/restores video memory and cursor around a background write.
func Write(group int, buf []byte) int {
	flags := arch.CliSave()
	defer arch.StiRestore(flags)

	t := &terms[group]
	if group == visibleGroup {
		for _, c := range buf {
			putChar(physVideo(), &t.cursorX, &t.cursorY, c)
		}
		setHWCursor(t.cursorX, t.cursorY)
	} else {
		dst := shadowVideo(group)
		for _, c := range buf {
			putChar(dst, &t.cursorX, &t.cursorY, c)
		}
	}
	return len(buf)
}

// SwitchTo makes group the visible one: saves the outgoing group's
// framebuffer into its shadow page, copies the incoming group's shadow
// page into the framebuffer, and moves the hardware cursor. Mirrors
// switch_term.
func SwitchTo(group int) {
	if group < 0 || group >= bounds.Ngroups || group == visibleGroup {
		return
	}
	flags := arch.CliSave()
	defer arch.StiRestore(flags)

	copy(shadowVideo(visibleGroup)[:], physVideo()[:])

	visibleGroup = group
	copy(physVideo()[:], shadowVideo(visibleGroup)[:])
	in := &terms[visibleGroup]
	setHWCursor(in.cursorX, in.cursorY)
}

func clearScreen() {
	v := physVideo()
	for i := 0; i < len(v); i += 2 {
		v[i] = ' '
		v[i+1] = 0x07
	}
	t := &terms[visibleGroup]
	t.cursorX, t.cursorY = 0, 0
	setHWCursor(0, 0)
}

// putChar renders one character into dst at (*x, *y), advancing and
// scrolling as needed. dst is either the physical framebuffer or a
// group's shadow page; both share the same 80x25, 2-bytes-per-cell
// layout.
func putChar(dst *[bounds.VideoCols * bounds.VideoRows * 2]byte, x, y *int, c byte) {
	switch c {
	case '\n':
		*x = 0
		*y++
	case '\b':
		if *x > 0 {
			*x--
		} else if *y > 0 {
			*y--
			*x = bounds.VideoCols - 1
		}
		off := (*y*bounds.VideoCols + *x) * 2
		dst[off] = ' '
		dst[off+1] = 0x07
	default:
		off := (*y*bounds.VideoCols + *x) * 2
		dst[off] = c
		dst[off+1] = 0x07
		*x++
		if *x >= bounds.VideoCols {
			*x = 0
			*y++
		}
	}
	if *y >= bounds.VideoRows {
		scroll(dst)
		*y = bounds.VideoRows - 1
	}
}

func printChar(c byte) {
	t := &terms[visibleGroup]
	putChar(physVideo(), &t.cursorX, &t.cursorY, c)
	setHWCursor(t.cursorX, t.cursorY)
}

func scroll(dst *[bounds.VideoCols * bounds.VideoRows * 2]byte) {
	rowBytes := bounds.VideoCols * 2
	copy(dst[:], dst[rowBytes:])
	for i := (bounds.VideoRows - 1) * rowBytes; i < len(dst); i += 2 {
		dst[i] = ' '
		dst[i+1] = 0x07
	}
}

// setHWCursor drives the CRTC cursor-location registers; only meaningful
// for the visible group (background groups have no hardware cursor, just
// a cached (x,y) pair).
func setHWCursor(x, y int) {
	pos := uint16(y*bounds.VideoCols + x)
	arch.Outb(crtcIndex, 0x0F)
	arch.Outb(crtcData, uint8(pos&0xFF))
	arch.Outb(crtcIndex, 0x0E)
	arch.Outb(crtcData, uint8(pos>>8))
}
