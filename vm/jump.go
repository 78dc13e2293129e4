package vm

// execJump handles J/JAL/JR/JALR. Like branches, the
// actual control transfer (including delay-slot sequencing) is orchestrated
// by the engine; this computes the target and any link-register write.
func (e *Engine) execJump(c *Context, in *Instruction) (target uint32, err error) {
	r := c.Registers
	linkAddr := in.Addr + 4
	if c.Mode.DelayedBranches {
		linkAddr = in.Addr + 8
	}

	switch in.Op {
	case OpJ:
		target = (in.Addr & 0xF0000000) | (in.Target << 2)
	case OpJAL:
		target = (in.Addr & 0xF0000000) | (in.Target << 2)
		r.SetGPR(31, linkAddr)
	case OpJR:
		target = r.GetGPR(in.RS)
	case OpJALR:
		target = r.GetGPR(in.RS)
		dest := in.RD
		if dest == 0 {
			dest = 31
		}
		r.SetGPR(dest, linkAddr)
	default:
		return 0, &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown jump opcode"}
	}
	return target, nil
}
