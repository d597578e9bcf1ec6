package cons

import (
	"testing"

	"bounds"
)

// resetTerminalState clears everything decode/addChar touch without going
// through Init (which maps the video pages into a real page directory);
// tests below only exercise the line-discipline logic, not the paging
// side of Init.
func resetTerminalState(group int) {
	terms[group] = terminal{}
	visibleGroup = group
	shiftHeld, ctrlHeld, altHeld, capsLock, pendingExtended = false, false, false, false, false
}

func TestDecodeAppliesShiftForLetters(t *testing.T) {
	resetTerminalState(0)
	decode(scLeftShift)
	decode(0x1E) // 'a'
	decode(scLeftShift | scReleaseBit)

	got := terms[0].buf[:terms[0].bufLen]
	if string(got) != "A" {
		t.Fatalf("shifted 'a' decoded to %q, want \"A\"", got)
	}
}

func TestDecodeCapsLockAffectsLettersNotDigits(t *testing.T) {
	resetTerminalState(0)
	decode(scCapsLock)
	decode(0x1E) // 'a' -> should become 'A' under caps lock
	decode(0x02) // '1' -> caps lock must not affect digits

	got := string(terms[0].buf[:terms[0].bufLen])
	if got != "A1" {
		t.Fatalf("caps lock decode = %q, want \"A1\"", got)
	}
}

func TestLineBufferCapsAtLinebufMaxMinusOneWithoutNewline(t *testing.T) {
	resetTerminalState(0)
	for i := 0; i < bounds.LinebufMax+20; i++ {
		decode(0x02) // '1', never releases, never a newline
	}
	if terms[0].bufLen != bounds.LinebufMax-1 {
		t.Fatalf("bufLen = %d after overflowing input, want %d (last slot reserved for newline)", terms[0].bufLen, bounds.LinebufMax-1)
	}
}

func TestLineBufferAcceptsNewlineAtLastSlot(t *testing.T) {
	resetTerminalState(0)
	// A reader is blocked in Read, so addChar keeps the completed line in
	// the buffer for it instead of discarding it.
	terms[0].readInProgress = true
	for i := 0; i < bounds.LinebufMax-1; i++ {
		decode(0x02) // '1'
	}
	if terms[0].bufLen != bounds.LinebufMax-1 {
		t.Fatalf("setup: bufLen = %d, want %d", terms[0].bufLen, bounds.LinebufMax-1)
	}
	decode(0x1C) // '\n', the one character still accepted at the last slot
	if terms[0].bufLen != bounds.LinebufMax {
		t.Fatalf("bufLen after trailing newline = %d, want %d", terms[0].bufLen, bounds.LinebufMax)
	}
	if !terms[0].newlineSeen {
		t.Fatalf("newlineSeen not set after the capping newline")
	}
}

func TestBackspaceDecrementsBufLen(t *testing.T) {
	resetTerminalState(0)
	decode(0x1E) // 'a'
	decode(0x1F) // 's'
	if terms[0].bufLen != 2 {
		t.Fatalf("setup: bufLen = %d, want 2", terms[0].bufLen)
	}
	decode(scBackspace)
	if terms[0].bufLen != 1 {
		t.Fatalf("bufLen after backspace = %d, want 1", terms[0].bufLen)
	}
}

func TestBackspaceOnEmptyLineIsANoop(t *testing.T) {
	resetTerminalState(0)
	decode(scBackspace)
	if terms[0].bufLen != 0 {
		t.Fatalf("backspace on empty buffer changed bufLen to %d", terms[0].bufLen)
	}
}

func TestKeyReleaseNeverAppendsOrToggles(t *testing.T) {
	resetTerminalState(0)
	decode(0x1E | scReleaseBit) // 'a' release, no preceding press
	if terms[0].bufLen != 0 {
		t.Fatalf("a bare key-release appended %d bytes, want 0", terms[0].bufLen)
	}
}
