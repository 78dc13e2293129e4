package vm

// Address map for the simulated MIPS32 virtual address space.
// Boundaries are bit-exact with the classic SPIM layout.
const (
	TextBase  uint32 = 0x00400000 // user TEXT segment start
	DataBase  uint32 = 0x10000000 // user DATA segment start
	StackTop  uint32 = 0x7FFFEFFF // top of the stack; $sp starts here rounded down to 8
	KTextBase uint32 = 0x80000000 // kernel TEXT segment start
	KDataBase uint32 = 0x90000000 // kernel DATA segment start

	SpecialBase uint32 = 0xFFFE0000 // SPIMbot scratch segment
	SpecialEnd  uint32 = 0xFFFF0000 // exclusive

	MMIOBase uint32 = 0xFFFF0000
	MMIOEnd  uint32 = 0xFFFFFFFF // inclusive
)

// StackGrowthWindow is how far below the current stack bottom a fault is
// still treated as "grow the stack" rather than a bus error.
const StackGrowthWindow uint32 = 16 * 1024 * 1024 // 16 MiB

// Default per-segment growth limits. These are configuration, not
// architectural constants, but the defaults mirror the reference
// simulator's defaults.
const (
	DefaultDataLimit  uint32 = 64 * 1024 * 1024
	DefaultKDataLimit uint32 = 16 * 1024 * 1024
	DefaultStackLimit uint32 = 64 * 1024 * 1024
)

// ExceptionHandlerAddress is the fixed address the engine jumps to on the
// cycle after an exception is raised (the assembled exception file's entry,
// out of scope to assemble here — callers install their own handler code at
// this address via the loader).
const ExceptionHandlerAddress uint32 = KTextBase

// GlobalPointerDefault seeds $gp for the small-data allocator; it sits in
// the middle of a 64KiB window so label additions/subtractions from it stay
// in range per the small-data-area convention.
const GlobalPointerDefault uint32 = DataBase + 0x8000
