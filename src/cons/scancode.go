package cons

// US-QWERTY PS/2 set-1 scan-code table, two rows (unshifted, shifted),
// grounded in keyboard.c's character lookup. 0 means "no printable
// character" (modifier keys, unmapped codes).
var scanTable = [0x3A][2]byte{
	0x02: {'1', '!'},
	0x03: {'2', '@'},
	0x04: {'3', '#'},
	0x05: {'4', '$'},
	0x06: {'5', '%'},
	0x07: {'6', '^'},
	0x08: {'7', '&'},
	0x09: {'8', '*'},
	0x0A: {'9', '('},
	0x0B: {'0', ')'},
	0x0C: {'-', '_'},
	0x0D: {'=', '+'},
	0x0F: {'\t', '\t'},
	0x10: {'q', 'Q'},
	0x11: {'w', 'W'},
	0x12: {'e', 'E'},
	0x13: {'r', 'R'},
	0x14: {'t', 'T'},
	0x15: {'y', 'Y'},
	0x16: {'u', 'U'},
	0x17: {'i', 'I'},
	0x18: {'o', 'O'},
	0x19: {'p', 'P'},
	0x1A: {'[', '{'},
	0x1B: {']', '}'},
	0x1C: {'\n', '\n'},
	0x1E: {'a', 'A'},
	0x1F: {'s', 'S'},
	0x20: {'d', 'D'},
	0x21: {'f', 'F'},
	0x22: {'g', 'G'},
	0x23: {'h', 'H'},
	0x24: {'j', 'J'},
	0x25: {'k', 'K'},
	0x26: {'l', 'L'},
	0x27: {';', ':'},
	0x28: {'\'', '"'},
	0x29: {'`', '~'},
	0x2B: {'\\', '|'},
	0x2C: {'z', 'Z'},
	0x2D: {'x', 'X'},
	0x2E: {'c', 'C'},
	0x2F: {'v', 'V'},
	0x30: {'b', 'B'},
	0x31: {'n', 'N'},
	0x32: {'m', 'M'},
	0x33: {',', '<'},
	0x34: {'.', '>'},
	0x35: {'/', '?'},
	0x39: {' ', ' '},
}

const (
	scLeftShift  = 0x2A
	scRightShift = 0x36
	scLeftCtrl   = 0x1D
	scLeftAlt    = 0x38
	scCapsLock   = 0x3A
	scBackspace  = 0x0E
	scF1         = 0x3B
	scF2         = 0x3C
	scF3         = 0x3D

	scReleaseBit  = 0x80
	scExtendedKey = 0xE0
)
