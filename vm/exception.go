package vm

// raiseOv latches an Ov exception for the engine's end-of-cycle handler
// to pick up. The destination register keeps its prior value.
func (e *Engine) raiseOv(c *Context, in *Instruction) error {
	e.latch(c, ExcOv, 0)
	return nil
}

// raiseTrap latches a Trap exception for TEQ/TNE/TLT/TLTU/TGE/TGEU.
func (e *Engine) raiseTrap(c *Context) error {
	e.latch(c, ExcTr, 0)
	return nil
}

// raiseCpU latches a coprocessor-unusable exception (COP2 ops).
func (e *Engine) raiseCpU(c *Context) error {
	e.latch(c, ExcCpU, 0)
	return nil
}

// raiseRI latches a reserved-instruction exception (TLB* ops).
func (e *Engine) raiseRI(c *Context) error {
	e.latch(c, ExcRI, 0)
	return nil
}

// raiseFPE latches a floating-point exception (ordered compare vs NaN with
// the "invalid" bit set).
func (e *Engine) raiseFPE(c *Context) error {
	e.latch(c, ExcFPE, 0)
	return nil
}

// raiseBreak latches a Bp exception.
func (e *Engine) raiseBreak(c *Context) error {
	e.latch(c, ExcBp, 0)
	return nil
}

// latch records that an exception of the given cause occurred this cycle;
// the engine's end-of-cycle check turns this into a vectored jump once
// dispatch returns, rather than unwinding immediately — the guest may
// install a handler and expects linear control flow.
func (e *Engine) latch(c *Context, code, badAddr uint32) {
	c.Registers.ExceptionOccurred = true
	e.pendingCode = code
	e.pendingBadAddr = badAddr
}

// handleException vectors to the fixed exception handler address:
//  1. record last-exception address = PC
//  2. compute EPC, accounting for a branch-delay slot
//  3. overwrite Cause.ExcCode
//  4. set Status.EXL
//  5. the engine's next fetch runs from ExceptionHandlerAddress
//
// Interrupts (code == ExcInt) are suppressed when Status.IE is clear or
// Status.EXL is set; architectural exceptions raised by instruction
// semantics are never suppressed this way.
func (e *Engine) handleException(c *Context, code, badAddr, faultPC uint32) {
	r := c.Registers
	if code == ExcInt && !r.InterruptsEnabled() {
		return
	}

	r.LastExceptionAddr = faultPC

	if r.BranchDelay && r.CP0.Status&StatusEXL == 0 {
		r.CP0.EPC = roundDown4(r.BranchDelayPC)
		r.SetBD(true)
	} else {
		r.CP0.EPC = roundDown4(faultPC)
		r.SetBD(false)
	}

	if code == ExcAdEL || code == ExcAdES || code == ExcIBE || code == ExcDBE {
		r.CP0.BadVAddr = badAddr
	}

	r.SetExcCode(code)
	r.CP0.Status |= StatusEXL

	r.PC = ExceptionHandlerAddress
	r.NPC = ExceptionHandlerAddress + 4
}

func roundDown4(addr uint32) uint32 {
	return addr &^ 3
}
