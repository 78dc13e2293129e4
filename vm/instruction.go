package vm

// Op identifies the decoded operation an Instruction performs. Unlike the
// raw opcode/function fields, Op already folds the opcode+function into a
// single dense tag (a COP1 operation's fmt stays in Instruction.FPFmt) so
// the engine can dispatch with one switch instead of re-deriving the
// instruction group on every cycle.
type Op int

const (
	OpInvalid Op = iota

	// Integer ALU
	OpADD
	OpADDI
	OpADDU
	OpADDIU
	OpSUB
	OpSUBU
	OpAND
	OpANDI
	OpOR
	OpORI
	OpXOR
	OpXORI
	OpNOR
	OpLUI
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpSLT
	OpSLTI
	OpSLTU
	OpSLTIU

	// Multiply/divide
	OpMULT
	OpMULTU
	OpMUL
	OpMADD
	OpMADDU
	OpMSUB
	OpMSUBU
	OpDIV
	OpDIVU
	OpMFHI
	OpMFLO
	OpMTHI
	OpMTLO

	// Branches
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpBLTZ
	OpBGEZ
	OpBLTZAL
	OpBGEZAL
	OpBEQL
	OpBNEL
	OpBLEZL
	OpBGTZL
	OpBLTZL
	OpBGEZL
	OpBLTZALL
	OpBGEZALL

	// Jumps
	OpJ
	OpJAL
	OpJR
	OpJALR

	// Loads / stores
	OpLB
	OpLBU
	OpLH
	OpLHU
	OpLW
	OpLWL
	OpLWR
	OpLL
	OpSB
	OpSH
	OpSW
	OpSWL
	OpSWR
	OpSC

	// Coprocessor 0
	OpMFC0
	OpMTC0
	OpCFC0
	OpCTC0
	OpERET

	// Coprocessor 2 (unimplemented — raises CpU)
	OpCOP2

	// Traps
	OpTEQ
	OpTNE
	OpTLT
	OpTLTU
	OpTGE
	OpTGEU
	OpTEQI
	OpTNEI
	OpTLTI
	OpTLTIU
	OpTGEI
	OpTGEIU

	// Misc integer
	OpSYSCALL
	OpBREAK
	OpSYNC
	OpPREF
	OpCACHE
	OpCLO
	OpCLZ
	OpMOVN
	OpMOVZ
	OpTLBOp // any TLB instruction — Reserved-Instruction in this implementation

	// FPU arithmetic (S/D selected by instruction.FPFmt)
	OpFPUABS
	OpFPUADD
	OpFPUSUB
	OpFPUMUL
	OpFPUDIV
	OpFPUNEG
	OpFPUSQRT
	OpFPUMOV
	OpFPUCEILW
	OpFPUFLOORW
	OpFPUROUNDW
	OpFPUTRUNCW
	OpFPUCVT

	// FPU load/store/transfer
	OpLWC1
	OpSWC1
	OpLDC1
	OpSDC1
	OpMFC1
	OpMTC1
	OpCFC1
	OpCTC1

	// FPU compare/branch/conditional move
	OpFPUCOMPARE
	OpBC1T
	OpBC1F
	OpBC1TL
	OpBC1FL
	OpMOVF
	OpMOVT
	OpMOVFFPU
	OpMOVTFPU
	OpMOVNFPU
	OpMOVZFPU
)

// FPFmt selects the floating-point operand format of an FPU instruction.
type FPFmt int

const (
	FmtNone FPFmt = iota
	FmtSingle
	FmtDouble
	FmtWord
)

// UnresolvedLabel is the patch record an assembler leaves on an instruction
// whose operand could not be resolved to a concrete address at encode time.
// The loader patches these in before the engine's first fetch; the
// engine itself only ever observes Instruction.Imm/Target post-patch, except
// that it treats a lingering zero-valued Label (one the loader never
// resolved) as an undefined-reference engine halt.
type UnresolvedLabel struct {
	Offset     int32  // constant offset added to the symbol's address
	Symbol     string // symbol name, resolved by the loader against Program.Symbols
	HalfSelect int    // 0 = full/low half, 1 = high half (for %hi/%lo style splits)
	PCRelative bool   // true if the patched value should be relative to this instruction's address
	resolved   bool
}

// Instruction is the decoded record the memory image's text segments store.
// It carries only the fields its Op actually uses, plus the original 32-bit
// encoding (needed for disassembly and for raw-word reads against text).
type Instruction struct {
	Addr    uint32
	Op      Op
	Raw     uint32 // original 32-bit encoding
	RS      int
	RT      int
	RD      int
	Shamt   int
	FPFmt   FPFmt
	FD      int // FPU destination, when distinct from RD
	FS      int
	FT      int
	CC      int // condition-code number for C.cond/BC1T/BC1F/MOVT/MOVF
	Imm     int32 // sign- or zero-extended 16-bit immediate, as the op requires
	Target  uint32 // 26-bit jump target field, pre-shifted and combined with PC's top bits at decode time is NOT done here; engine does it
	Label   *UnresolvedLabel

	// Source line, purely for error/disassembly text; never interpreted.
	SourceLine string
}

// IsLikelyBranch reports whether Op is one of the "likely" branch variants,
// which nullify their delay slot when not taken.
func (op Op) IsLikelyBranch() bool {
	switch op {
	case OpBEQL, OpBNEL, OpBLEZL, OpBGTZL, OpBLTZL, OpBGEZL, OpBLTZALL, OpBGEZALL,
		OpBC1TL, OpBC1FL:
		return true
	}
	return false
}

// IsBranch reports whether Op is any conditional branch (likely or not).
func (op Op) IsBranch() bool {
	switch op {
	case OpBEQ, OpBNE, OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ, OpBLTZAL, OpBGEZAL,
		OpBEQL, OpBNEL, OpBLEZL, OpBGTZL, OpBLTZL, OpBGEZL, OpBLTZALL, OpBGEZALL,
		OpBC1T, OpBC1F, OpBC1TL, OpBC1FL:
		return true
	}
	return false
}

// IsJump reports whether Op is an unconditional jump.
func (op Op) IsJump() bool {
	switch op {
	case OpJ, OpJAL, OpJR, OpJALR:
		return true
	}
	return false
}

// Resolved reports whether the instruction's unresolved label (if any) has
// been patched by the loader.
func (i *Instruction) Resolved() bool {
	return i.Label == nil || i.Label.resolved
}

// MarkResolved records that the loader has patched Label's address into
// Imm/Target, so the engine will treat this instruction as runnable.
func (i *Instruction) MarkResolved() {
	if i.Label != nil {
		i.Label.resolved = true
	}
}
