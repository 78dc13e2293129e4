package vm

// execALU handles integer ALU, logical, shift, and compare-set
// instructions, plus the MOVN/MOVZ/CLO/CLZ odds and ends that live in the
// same dispatch tier.
func (e *Engine) execALU(c *Context, in *Instruction) error {
	r := c.Registers
	switch in.Op {
	case OpADD:
		a, b := int32(r.GetGPR(in.RS)), int32(r.GetGPR(in.RT))
		sum := a + b
		if overflowsAdd(a, b, sum) {
			return e.raiseOv(c, in)
		}
		r.SetGPR(in.RD, uint32(sum))
	case OpADDI:
		a, b := int32(r.GetGPR(in.RS)), in.Imm
		sum := a + b
		if overflowsAdd(a, b, sum) {
			return e.raiseOv(c, in)
		}
		r.SetGPR(in.RT, uint32(sum))
	case OpADDU:
		r.SetGPR(in.RD, r.GetGPR(in.RS)+r.GetGPR(in.RT))
	case OpADDIU:
		r.SetGPR(in.RT, r.GetGPR(in.RS)+uint32(in.Imm))
	case OpSUB:
		a, b := int32(r.GetGPR(in.RS)), int32(r.GetGPR(in.RT))
		diff := a - b
		if overflowsSub(a, b, diff) {
			return e.raiseOv(c, in)
		}
		r.SetGPR(in.RD, uint32(diff))
	case OpSUBU:
		r.SetGPR(in.RD, r.GetGPR(in.RS)-r.GetGPR(in.RT))

	case OpAND:
		r.SetGPR(in.RD, r.GetGPR(in.RS)&r.GetGPR(in.RT))
	case OpANDI:
		r.SetGPR(in.RT, r.GetGPR(in.RS)&uint32(in.Imm))
	case OpOR:
		r.SetGPR(in.RD, r.GetGPR(in.RS)|r.GetGPR(in.RT))
	case OpORI:
		r.SetGPR(in.RT, r.GetGPR(in.RS)|uint32(in.Imm))
	case OpXOR:
		r.SetGPR(in.RD, r.GetGPR(in.RS)^r.GetGPR(in.RT))
	case OpXORI:
		r.SetGPR(in.RT, r.GetGPR(in.RS)^uint32(in.Imm))
	case OpNOR:
		r.SetGPR(in.RD, ^(r.GetGPR(in.RS) | r.GetGPR(in.RT)))
	case OpLUI:
		r.SetGPR(in.RT, uint32(in.Imm)<<16)

	case OpSLL:
		r.SetGPR(in.RD, r.GetGPR(in.RT)<<(uint(in.Shamt)&0x1F))
	case OpSRL:
		r.SetGPR(in.RD, r.GetGPR(in.RT)>>(uint(in.Shamt)&0x1F))
	case OpSRA:
		r.SetGPR(in.RD, uint32(int32(r.GetGPR(in.RT))>>(uint(in.Shamt)&0x1F)))
	case OpSLLV:
		r.SetGPR(in.RD, r.GetGPR(in.RT)<<(r.GetGPR(in.RS)&0x1F))
	case OpSRLV:
		r.SetGPR(in.RD, r.GetGPR(in.RT)>>(r.GetGPR(in.RS)&0x1F))
	case OpSRAV:
		r.SetGPR(in.RD, uint32(int32(r.GetGPR(in.RT))>>(r.GetGPR(in.RS)&0x1F)))

	case OpSLT:
		r.SetGPR(in.RD, boolToWord(int32(r.GetGPR(in.RS)) < int32(r.GetGPR(in.RT))))
	case OpSLTI:
		r.SetGPR(in.RT, boolToWord(int32(r.GetGPR(in.RS)) < in.Imm))
	case OpSLTU:
		r.SetGPR(in.RD, boolToWord(r.GetGPR(in.RS) < r.GetGPR(in.RT)))
	case OpSLTIU:
		r.SetGPR(in.RT, boolToWord(r.GetGPR(in.RS) < uint32(in.Imm)))

	case OpMOVN:
		if r.GetGPR(in.RT) != 0 {
			r.SetGPR(in.RD, r.GetGPR(in.RS))
		}
	case OpMOVZ:
		if r.GetGPR(in.RT) == 0 {
			r.SetGPR(in.RD, r.GetGPR(in.RS))
		}

	case OpCLZ:
		r.SetGPR(in.RD, countLeading(r.GetGPR(in.RS), 0))
	case OpCLO:
		r.SetGPR(in.RD, countLeading(r.GetGPR(in.RS), 1))

	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown ALU opcode"}
	}
	return nil
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// overflowsAdd reports whether a signed add overflowed: operand signs
// match and the result sign differs.
func overflowsAdd(a, b, sum int32) bool {
	return (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0)
}

func overflowsSub(a, b, diff int32) bool {
	return (a >= 0) != (b >= 0) && (diff >= 0) != (a >= 0)
}

func countLeading(v uint32, bit uint32) uint32 {
	if bit == 1 {
		v = ^v
	}
	var n uint32
	for i := 31; i >= 0; i-- {
		if (v>>uint(i))&1 != 0 {
			break
		}
		n++
	}
	return n
}
