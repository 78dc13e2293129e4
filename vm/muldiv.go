package vm

// execMulDiv handles MULT/MULTU/MUL/MADD/MADDU/MSUB/MSUBU/DIV/DIVU and the
// HI/LO transfer instructions MFHI/MFLO/MTHI/MTLO.
func (e *Engine) execMulDiv(c *Context, in *Instruction) error {
	r := c.Registers
	switch in.Op {
	case OpMULT:
		prod := int64(int32(r.GetGPR(in.RS))) * int64(int32(r.GetGPR(in.RT)))
		r.HI, r.LO = uint32(uint64(prod)>>32), uint32(prod)
	case OpMULTU:
		prod := uint64(r.GetGPR(in.RS)) * uint64(r.GetGPR(in.RT))
		r.HI, r.LO = uint32(prod>>32), uint32(prod)
	case OpMUL:
		r.SetGPR(in.RD, r.GetGPR(in.RS)*r.GetGPR(in.RT))

	case OpMADD:
		acc := int64(r.HI)<<32 | int64(r.LO)
		prod := int64(int32(r.GetGPR(in.RS))) * int64(int32(r.GetGPR(in.RT)))
		sum := uint64(acc) + uint64(prod)
		r.HI, r.LO = uint32(sum>>32), uint32(sum)
	case OpMADDU:
		acc := uint64(r.HI)<<32 | uint64(r.LO)
		prod := uint64(r.GetGPR(in.RS)) * uint64(r.GetGPR(in.RT))
		sum := acc + prod
		r.HI, r.LO = uint32(sum>>32), uint32(sum)
	case OpMSUB:
		acc := int64(r.HI)<<32 | int64(r.LO)
		prod := int64(int32(r.GetGPR(in.RS))) * int64(int32(r.GetGPR(in.RT)))
		diff := uint64(acc) - uint64(prod)
		r.HI, r.LO = uint32(diff>>32), uint32(diff)
	case OpMSUBU:
		acc := uint64(r.HI)<<32 | uint64(r.LO)
		prod := uint64(r.GetGPR(in.RS)) * uint64(r.GetGPR(in.RT))
		diff := acc - prod
		r.HI, r.LO = uint32(diff>>32), uint32(diff)

	case OpDIV:
		a, b := int32(r.GetGPR(in.RS)), int32(r.GetGPR(in.RT))
		if b == 0 || (a == -2147483648 && b == -1) {
			// Division by zero and INT_MIN/-1 leave HI/LO unchanged —
			// architecturally undefined, defined as a no-op here.
			return nil
		}
		r.LO, r.HI = uint32(a/b), uint32(a%b)
	case OpDIVU:
		a, b := r.GetGPR(in.RS), r.GetGPR(in.RT)
		if b == 0 {
			return nil
		}
		r.LO, r.HI = a/b, a%b

	case OpMFHI:
		r.SetGPR(in.RD, r.HI)
	case OpMFLO:
		r.SetGPR(in.RD, r.LO)
	case OpMTHI:
		r.HI = r.GetGPR(in.RS)
	case OpMTLO:
		r.LO = r.GetGPR(in.RS)

	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown multiply/divide opcode"}
	}
	return nil
}
