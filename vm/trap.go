package vm

// execTrap handles TEQ/TNE/TLT/TLTU/TGE/TGEU and their immediate forms:
// raise Trap when the named condition holds.
func (e *Engine) execTrap(c *Context, in *Instruction) error {
	r := c.Registers
	var cond bool

	switch in.Op {
	case OpTEQ:
		cond = r.GetGPR(in.RS) == r.GetGPR(in.RT)
	case OpTNE:
		cond = r.GetGPR(in.RS) != r.GetGPR(in.RT)
	case OpTLT:
		cond = int32(r.GetGPR(in.RS)) < int32(r.GetGPR(in.RT))
	case OpTLTU:
		cond = r.GetGPR(in.RS) < r.GetGPR(in.RT)
	case OpTGE:
		cond = int32(r.GetGPR(in.RS)) >= int32(r.GetGPR(in.RT))
	case OpTGEU:
		cond = r.GetGPR(in.RS) >= r.GetGPR(in.RT)
	case OpTEQI:
		cond = int32(r.GetGPR(in.RS)) == in.Imm
	case OpTNEI:
		cond = int32(r.GetGPR(in.RS)) != in.Imm
	case OpTLTI:
		cond = int32(r.GetGPR(in.RS)) < in.Imm
	case OpTLTIU:
		cond = r.GetGPR(in.RS) < uint32(in.Imm)
	case OpTGEI:
		cond = int32(r.GetGPR(in.RS)) >= in.Imm
	case OpTGEIU:
		cond = r.GetGPR(in.RS) >= uint32(in.Imm)
	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown trap opcode"}
	}

	if cond {
		return e.raiseTrap(c)
	}
	return nil
}
