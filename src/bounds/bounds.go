// Package bounds gathers this nucleus's fixed size constants in one place,
// the way biscuit's limits package does, instead of scattering magic
// numbers across every package that needs one.
package bounds

const (
	// Ngroups is the fixed number of virtual terminals / scheduling
	// classes. Never varies at runtime.
	Ngroups = 3

	// Nprocs is the size of the PCB pool: pid 0 is the kernel, pids
	// 1..Nprocs-1 are available to user programs.
	Nprocs = 7

	// Nfds is the number of file-descriptor slots per process.
	Nfds = 8

	// ArgMax is the largest argument buffer execute() will accept,
	// matching the original's 127-byte cap (128 with the NUL).
	ArgMax = 127

	// LinebufMax is the console line-discipline buffer cap.
	LinebufMax = 128

	// MaxExecArgs is the number of space-separated arguments execute()
	// tokenizes out of a command line, beyond the filename itself.
	MaxExecArgs = 3

	// NameMax is the longest filename a dentry can hold.
	NameMax = 32

	// UserLoadVirt is the fixed virtual address every user program is
	// copied to.
	UserLoadVirt = 0x08048000

	// UserProgVirt is the fixed virtual address of the 4MiB user
	// program slot the scheduler re-points on every context switch.
	UserProgVirt = 128 * 1024 * 1024

	// UserProgPhysBase and UserProgSlotSize locate pid p's program
	// physical 4MiB region at UserProgPhysBase + (p-1)*UserProgSlotSize.
	UserProgPhysBase = 8 * 1024 * 1024
	UserProgSlotSize = 4 * 1024 * 1024

	// UserVideoVirt is the fixed virtual address of the one 4KiB
	// user-video page, present only after a successful vidmap call.
	UserVideoVirt = 0x08400000

	// PitHz is the scheduler preemption tick rate.
	PitHz = 40

	// RtcPhysHz is the physical RTC's fixed periodic-interrupt rate.
	RtcPhysHz = 1024

	// RtcMinHz and RtcMaxHz bound the virtualized per-group RTC rate
	// a process may request.
	RtcMinHz = 2
	RtcMaxHz = 1024

	// VideoPhys is the physical (and, under this nucleus's identity-mapped
	// first 4MiB, virtual) address of the one physical VGA text-mode
	// framebuffer.
	VideoPhys = 0xB8000

	// VideoShadowBase and VideoShadowStride locate each group's
	// background shadow page at VideoShadowBase + group*VideoShadowStride.
	// The three pages are consecutive: cons.ShadowPhys finds a group's
	// page by this address arithmetic, which relies on that adjacency.
	VideoShadowBase   = 0xB9000
	VideoShadowStride = 0x1000

	// VideoCols and VideoRows are the fixed VGA text-mode dimensions.
	VideoCols = 80
	VideoRows = 25

	// FsImageSize is the fixed size of the linked-in filesystem image:
	// one boot block plus room for MaxDentry inode blocks and their data,
	// generous enough for the handful of shell/user programs this
	// nucleus ships without needing a build-time size negotiation between
	// mkfs and the kernel link step.
	FsImageSize = (1 + 63 + 512) * 4096
)
