package vm

// execLoad handles LB/LBU/LH/LHU/LW/LWL/LWR/LL. When
// delayed loads are enabled the decoded value is deposited into the
// two-stage pending-load pipeline instead of written immediately; LL is
// identical to LW in this single-processor model.
func (e *Engine) execLoad(c *Context, in *Instruction) error {
	r := c.Registers
	addr := r.GetGPR(in.RS) + uint32(in.Imm)

	var value uint32
	switch in.Op {
	case OpLB:
		b, err := c.Memory.ReadByte(addr)
		if err != nil {
			return e.memFault(c, err)
		}
		value = uint32(int32(int8(b)))
	case OpLBU:
		b, err := c.Memory.ReadByte(addr)
		if err != nil {
			return e.memFault(c, err)
		}
		value = uint32(b)
	case OpLH:
		h, err := c.Memory.ReadHalfword(addr)
		if err != nil {
			return e.memFault(c, err)
		}
		value = uint32(int32(int16(h)))
	case OpLHU:
		h, err := c.Memory.ReadHalfword(addr)
		if err != nil {
			return e.memFault(c, err)
		}
		value = uint32(h)
	case OpLW, OpLL:
		w, err := c.Memory.ReadWord(addr)
		if err != nil {
			return e.memFault(c, err)
		}
		value = w
	case OpLWL:
		merged, err := loadMergeLeft(c.Memory, addr, r.GetGPR(in.RT))
		if err != nil {
			return e.memFault(c, err)
		}
		value = merged
	case OpLWR:
		merged, err := loadMergeRight(c.Memory, addr, r.GetGPR(in.RT))
		if err != nil {
			return e.memFault(c, err)
		}
		value = merged
	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown load opcode"}
	}

	if c.Mode.DelayedLoads {
		r.PushPendingLoad(in.RT, value)
	} else {
		r.SetGPR(in.RT, value)
	}
	return nil
}

// execStore handles SB/SH/SW/SWL/SWR/SC. SC is
// identical to SW and conventionally reports success by writing 1 to its
// source/destination register (uniprocessor: it can never fail).
func (e *Engine) execStore(c *Context, in *Instruction) error {
	r := c.Registers
	addr := r.GetGPR(in.RS) + uint32(in.Imm)

	switch in.Op {
	case OpSB:
		if err := c.Memory.WriteByte(addr, byte(r.GetGPR(in.RT))); err != nil {
			return e.memFault(c, err)
		}
	case OpSH:
		if err := c.Memory.WriteHalfword(addr, uint16(r.GetGPR(in.RT))); err != nil {
			return e.memFault(c, err)
		}
	case OpSW:
		if err := c.Memory.WriteWord(addr, r.GetGPR(in.RT)); err != nil {
			return e.memFault(c, err)
		}
	case OpSWL:
		if err := storeMergeLeft(c.Memory, addr, r.GetGPR(in.RT)); err != nil {
			return e.memFault(c, err)
		}
	case OpSWR:
		if err := storeMergeRight(c.Memory, addr, r.GetGPR(in.RT)); err != nil {
			return e.memFault(c, err)
		}
	case OpSC:
		if err := c.Memory.WriteWord(addr, r.GetGPR(in.RT)); err != nil {
			return e.memFault(c, err)
		}
		r.SetGPR(in.RT, 1)
	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown store opcode"}
	}
	return nil
}

// memFault converts a Memory-level Exception into the engine's latched
// edge-flag form, while letting a FatalError or other Go
// error propagate untouched.
func (e *Engine) memFault(c *Context, err error) error {
	if exc, ok := err.(*Exception); ok {
		e.latch(c, exc.Code, exc.BadAddr)
		return nil
	}
	return err
}

// loadMergeLeft implements LWL: addr's byte-within-word index selects how
// many bytes of the aligned word to merge into the top of the
// destination; the merge masks are endian-specific.
func loadMergeLeft(m *Memory, addr, destVal uint32) (uint32, error) {
	aligned := addr &^ 3
	word, err := m.ReadWord(aligned)
	if err != nil {
		return 0, err
	}
	b := addr & 3
	if m.BigEndian {
		shift := b * 8
		mask := uint32(0xFFFFFFFF) << shift
		return (destVal &^ mask) | ((word << shift) & mask), nil
	}
	shift := (3 - b) * 8
	mask := uint32(0xFFFFFFFF) << shift
	return (destVal &^ mask) | ((word << shift) & mask), nil
}

// loadMergeRight implements LWR, mirroring loadMergeLeft into the bottom of
// the destination register.
func loadMergeRight(m *Memory, addr, destVal uint32) (uint32, error) {
	aligned := addr &^ 3
	word, err := m.ReadWord(aligned)
	if err != nil {
		return 0, err
	}
	b := addr & 3
	if m.BigEndian {
		shift := (3 - b) * 8
		mask := uint32(0xFFFFFFFF) >> shift
		return (destVal &^ mask) | ((word >> shift) & mask), nil
	}
	shift := b * 8
	mask := uint32(0xFFFFFFFF) >> shift
	return (destVal &^ mask) | ((word >> shift) & mask), nil
}

// storeMergeLeft implements SWL: merges the top bytes of rt into the
// aligned word at addr, masked the same way as loadMergeLeft but in the
// store direction.
func storeMergeLeft(m *Memory, addr, rt uint32) error {
	aligned := addr &^ 3
	word, err := m.ReadWord(aligned)
	if err != nil {
		return err
	}
	b := addr & 3
	shift := (3 - b) * 8
	if m.BigEndian {
		shift = b * 8
	}
	merged := (word &^ (0xFFFFFFFF >> shift)) | (rt >> shift)
	return m.WriteWord(aligned, merged)
}

// storeMergeRight implements SWR, mirroring storeMergeLeft into the bottom
// bytes of the aligned word.
func storeMergeRight(m *Memory, addr, rt uint32) error {
	aligned := addr &^ 3
	word, err := m.ReadWord(aligned)
	if err != nil {
		return err
	}
	b := addr & 3
	shift := b * 8
	if m.BigEndian {
		shift = (3 - b) * 8
	}
	merged := (word &^ (0xFFFFFFFF << shift)) | (rt << shift)
	return m.WriteWord(aligned, merged)
}
