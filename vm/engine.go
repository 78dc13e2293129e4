package vm

import "fmt"

// Engine executes one MIPS32 context at a time. It carries no state of its
// own beyond the exception scratch fields that raise*/latch (exception.go)
// write and the end-of-cycle check in runOne reads back within the same
// Step call — a single Engine may drive many contexts in turn as long as
// calls are not interleaved concurrently, which the scheduler's simulator
// lock guarantees.
type Engine struct {
	pendingCode    uint32
	pendingBadAddr uint32
}

// NewEngine returns a ready-to-use Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ctKind classifies how dispatch changed control flow, so runOne knows
// whether a delay slot applies.
type ctKind int

const (
	ctNone      ctKind = iota // sequential instruction, PC += 4
	ctBranch                  // conditional branch: delay-slot-subject
	ctJump                    // unconditional jump: delay-slot-subject, always taken
	ctImmediate               // takes effect with no delay slot (ERET)
)

type controlTransfer struct {
	kind   ctKind
	taken  bool
	target uint32
}

type cycleOutcome int

const (
	outcomeNormal cycleOutcome = iota
	outcomeHalted
	outcomeVectored
)

// Step executes exactly one architectural cycle of ctx: zero
// R0, fetch, delayed-load writeback, dispatch, and the end-of-cycle
// exception vector. An engine halt (null slot, unresolved symbol, unknown
// opcode) is reported to the context's stderr and returned as Halted with
// the error attached; a fatal run-time error (segment limit exceeded, odd
// double-register index) is returned as a FatalError, also with Halted.
func (e *Engine) Step(ctx *Context) (result StepResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = Halted
			ctx.State = Halted
			err = &FatalError{Msg: fmt.Sprintf("ctx%d: %v at PC=0x%08X", ctx.ID, p, ctx.Registers.PC)}
		}
	}()

	r := ctx.Registers
	r.ZeroR0()

	if src, ok := ctx.Memory.MMIO.(InterruptSource); ok {
		if src.PendingInterrupt() {
			r.CP0.Cause |= CauseIPRecv
			if r.InterruptsEnabled() {
				e.handleException(ctx, ExcInt, 0, r.PC)
				ctx.State = Continue
				return Continue, nil
			}
		} else {
			r.CP0.Cause &^= CauseIPRecv
		}
	}

	outcome, err := e.runOne(ctx, r.PC, false, 0)
	if err != nil {
		if halt, ok := err.(*EngineHaltError); ok {
			ctx.reportf("%s", halt.Error())
			ctx.State = Halted
			return Halted, err
		}
		if _, ok := err.(*FatalError); ok {
			ctx.State = Halted
			return Halted, err
		}
		return Continue, err
	}
	r.NPC = r.PC + 4
	r.CP0.Count++
	if outcome == outcomeHalted {
		ctx.State = Halted
		return Halted, nil
	}
	ctx.State = Continue
	return Continue, nil
}

// runOne fetches and executes the instruction at addr. When inDelaySlot is
// true, addr is a branch or jump's delay-slot instruction and branchAddr is
// the address of the branch itself, recorded onto Registers for the
// exception handler's EPC/BD computation. A taken branch or jump runs its
// own delay slot by calling runOne again here rather than by recursing
// into the full Step cycle, which keeps R0 zeroing and delayed-load
// writeback once-per-architectural-cycle.
func (e *Engine) runOne(ctx *Context, addr uint32, inDelaySlot bool, branchAddr uint32) (cycleOutcome, error) {
	r := ctx.Registers

	savedBD, savedBDPC := r.BranchDelay, r.BranchDelayPC
	if inDelaySlot {
		r.BranchDelay = true
		r.BranchDelayPC = branchAddr
	}
	defer func() { r.BranchDelay, r.BranchDelayPC = savedBD, savedBDPC }()

	inst, ferr := ctx.Memory.ReadInst(addr)
	if ferr != nil {
		exc, ok := ferr.(*Exception)
		if !ok {
			return outcomeNormal, ferr
		}
		e.handleException(ctx, exc.Code, exc.BadAddr, addr)
		return outcomeVectored, nil
	}
	if inst == nil {
		return outcomeNormal, &EngineHaltError{CtxID: ctx.ID, PC: addr, Msg: "attempt to execute non-instruction"}
	}
	if !inst.Resolved() {
		return outcomeNormal, &EngineHaltError{
			CtxID: ctx.ID, PC: addr,
			Msg: fmt.Sprintf("undefined reference to %q", inst.Label.Symbol),
		}
	}

	if !inDelaySlot {
		r.AdvancePendingLoads()
	}

	ct, derr := e.dispatch(ctx, inst)

	if exit, ok := derr.(*exitSignal); ok {
		ctx.Exited = true
		ctx.ExitCode = exit.code
		return outcomeHalted, nil
	}
	if derr != nil {
		return outcomeNormal, derr
	}

	if r.ExceptionOccurred {
		r.ExceptionOccurred = false
		e.handleException(ctx, e.pendingCode, e.pendingBadAddr, addr)
		return outcomeVectored, nil
	}

	switch ct.kind {
	case ctNone:
		r.PC = addr + 4
		return outcomeNormal, nil
	case ctImmediate:
		r.PC = ct.target
		return outcomeNormal, nil
	}

	if !ctx.Mode.DelayedBranches {
		if ct.taken {
			r.PC = ct.target
		} else {
			r.PC = addr + 4
		}
		return outcomeNormal, nil
	}

	if ct.kind == ctBranch && !ct.taken && inst.Op.IsLikelyBranch() {
		// Likely-and-not-taken nullifies the delay slot instead of executing
		// it.
		r.PC = addr + 8
		return outcomeNormal, nil
	}

	outcome, err := e.runOne(ctx, addr+4, true, addr)
	if err != nil {
		return outcomeNormal, err
	}
	if outcome != outcomeNormal {
		return outcome, nil
	}
	if ct.taken {
		r.PC = ct.target
	}
	// Else the nested call already advanced PC to addr+8 as an ordinary
	// sequential instruction (the fallthrough case).
	return outcomeNormal, nil
}

// dispatch executes in's semantics against ctx and reports any control
// transfer it causes. Non-branching ops report ctNone and leave PC
// sequencing entirely to the caller.
func (e *Engine) dispatch(ctx *Context, in *Instruction) (controlTransfer, error) {
	r := ctx.Registers

	switch in.Op {
	case OpBEQ, OpBNE, OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ, OpBLTZAL, OpBGEZAL,
		OpBEQL, OpBNEL, OpBLEZL, OpBGTZL, OpBLTZL, OpBGEZL, OpBLTZALL, OpBGEZALL:
		if isLinkBranch(in.Op) {
			r.SetGPR(31, linkAddress(ctx, in.Addr))
		}
		taken, target := branchOutcome(ctx, in)
		return controlTransfer{kind: ctBranch, taken: taken, target: target}, nil

	case OpBC1T, OpBC1F, OpBC1TL, OpBC1FL:
		taken, target := fpBranchOutcome(ctx, in)
		return controlTransfer{kind: ctBranch, taken: taken, target: target}, nil

	case OpJ, OpJAL, OpJR, OpJALR:
		target, err := e.execJump(ctx, in)
		if err != nil {
			return controlTransfer{}, err
		}
		return controlTransfer{kind: ctJump, taken: true, target: target}, nil

	case OpERET:
		target := e.execERET(ctx)
		return controlTransfer{kind: ctImmediate, target: target}, nil

	case OpADD, OpADDI, OpADDU, OpADDIU, OpSUB, OpSUBU,
		OpAND, OpANDI, OpOR, OpORI, OpXOR, OpXORI, OpNOR, OpLUI,
		OpSLL, OpSRL, OpSRA, OpSLLV, OpSRLV, OpSRAV,
		OpSLT, OpSLTI, OpSLTU, OpSLTIU,
		OpMOVN, OpMOVZ, OpCLZ, OpCLO:
		return controlTransfer{}, e.execALU(ctx, in)

	case OpMULT, OpMULTU, OpMUL, OpMADD, OpMADDU, OpMSUB, OpMSUBU, OpDIV, OpDIVU,
		OpMFHI, OpMFLO, OpMTHI, OpMTLO:
		return controlTransfer{}, e.execMulDiv(ctx, in)

	case OpLB, OpLBU, OpLH, OpLHU, OpLW, OpLWL, OpLWR, OpLL:
		return controlTransfer{}, e.execLoad(ctx, in)

	case OpSB, OpSH, OpSW, OpSWL, OpSWR, OpSC:
		return controlTransfer{}, e.execStore(ctx, in)

	case OpTEQ, OpTNE, OpTLT, OpTLTU, OpTGE, OpTGEU,
		OpTEQI, OpTNEI, OpTLTI, OpTLTIU, OpTGEI, OpTGEIU:
		return controlTransfer{}, e.execTrap(ctx, in)

	case OpMFC0, OpMTC0, OpCFC0, OpCTC0:
		return controlTransfer{}, e.execCop0(ctx, in)

	case OpCOP2:
		return controlTransfer{}, e.raiseCpU(ctx)

	case OpTLBOp:
		return controlTransfer{}, e.raiseRI(ctx)

	case OpSYSCALL:
		return controlTransfer{}, e.dispatchSyscall(ctx)

	case OpBREAK:
		return controlTransfer{}, e.raiseBreak(ctx)

	case OpSYNC, OpPREF, OpCACHE:
		return controlTransfer{}, nil

	case OpFPUABS, OpFPUADD, OpFPUSUB, OpFPUMUL, OpFPUDIV, OpFPUNEG, OpFPUSQRT, OpFPUMOV,
		OpFPUCEILW, OpFPUFLOORW, OpFPUROUNDW, OpFPUTRUNCW, OpFPUCVT,
		OpLWC1, OpSWC1, OpLDC1, OpSDC1, OpMFC1, OpMTC1, OpCFC1, OpCTC1,
		OpFPUCOMPARE, OpMOVF, OpMOVT, OpMOVFFPU, OpMOVTFPU, OpMOVNFPU, OpMOVZFPU:
		return controlTransfer{}, e.execFPU(ctx, in)

	default:
		return controlTransfer{}, &EngineHaltError{CtxID: ctx.ID, PC: in.Addr, Msg: "unimplemented opcode"}
	}
}

// linkAddress returns the return address a link-branch or JAL/JALR writes:
// the instruction after the delay slot in delayed-branch mode, or the plain
// next instruction otherwise.
func linkAddress(ctx *Context, branchAddr uint32) uint32 {
	if ctx.Mode.DelayedBranches {
		return branchAddr + 8
	}
	return branchAddr + 4
}
