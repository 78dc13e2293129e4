package vm

// execCop0 handles MFC0/MTC0/CFC0/CTC0: the system-control
// coprocessor's register-move instructions. CFC0/CTC0 address the same
// register file as MFC0/MTC0 in this implementation — there is no separate
// control-register bank for CP0.
func (e *Engine) execCop0(c *Context, in *Instruction) error {
	r := c.Registers
	switch in.Op {
	case OpMFC0, OpCFC0:
		r.SetGPR(in.RT, r.readCP0(in.RD))
	case OpMTC0, OpCTC0:
		r.writeCP0(in.RD, r.GetGPR(in.RT))
	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown COP0 opcode"}
	}
	return nil
}

// execERET implements ERET: clear Status.EXL and resume at EPC.
// It reports its target through the ctImmediate control-transfer path
// instead of writing PC directly, so dispatch's caller retains sole
// ownership of PC sequencing.
func (e *Engine) execERET(c *Context) uint32 {
	r := c.Registers
	r.CP0.Status &^= StatusEXL
	return r.CP0.EPC
}

// readCP0 maps a CP0 register number to the modeled subset of the register
// file; unmodeled numbers read back as zero rather than faulting, matching
// how real MIPS32 cores treat reserved register numbers within an
// implemented register's select range.
func (r *Registers) readCP0(reg int) uint32 {
	switch reg {
	case 8:
		return r.CP0.BadVAddr
	case 9:
		return r.CP0.Count
	case 11:
		return r.CP0.Compare
	case 12:
		return r.CP0.Status
	case 13:
		return r.CP0.Cause
	case 14:
		return r.CP0.EPC
	case 16:
		return r.CP0.Config
	default:
		return 0
	}
}

func (r *Registers) writeCP0(reg int, v uint32) {
	switch reg {
	case 9:
		r.CP0.Count = v
	case 11:
		r.CP0.Compare = v
	case 12:
		r.SetStatus(v)
	case 13:
		r.SetCause(v)
	case 14:
		r.CP0.EPC = v
	case 16:
		r.SetConfig(v)
	// BadVAddr (8) is read-only.
	default:
	}
}
