package vm

import "math"

// execFPU handles every coprocessor-1 instruction:
// arithmetic, rounding/conversion, load/store, register transfer, compare,
// and conditional move.
func (e *Engine) execFPU(c *Context, in *Instruction) error {
	r := c.Registers

	switch in.Op {
	case OpFPUADD, OpFPUSUB, OpFPUMUL, OpFPUDIV:
		return e.execFPUBinary(c, in)
	case OpFPUABS, OpFPUNEG, OpFPUMOV, OpFPUSQRT:
		return e.execFPUUnary(c, in)
	case OpFPUCEILW, OpFPUFLOORW, OpFPUROUNDW, OpFPUTRUNCW:
		return e.execFPURoundToW(c, in)
	case OpFPUCVT:
		return e.execFPUConvert(c, in)

	case OpLWC1:
		addr := r.GetGPR(in.RS) + uint32(in.Imm)
		v, err := c.Memory.ReadWord(addr)
		if err != nil {
			return e.memFault(c, err)
		}
		r.SetFPSingle(in.FT, v)
	case OpSWC1:
		addr := r.GetGPR(in.RS) + uint32(in.Imm)
		if err := c.Memory.WriteWord(addr, r.GetFPSingle(in.FT)); err != nil {
			return e.memFault(c, err)
		}
	case OpLDC1:
		addr := r.GetGPR(in.RS) + uint32(in.Imm)
		hi, err := c.Memory.ReadWord(addr + 4)
		if err != nil {
			return e.memFault(c, err)
		}
		lo, err := c.Memory.ReadWord(addr)
		if err != nil {
			return e.memFault(c, err)
		}
		r.SetFPDouble(in.FT, uint64(hi)<<32|uint64(lo))
	case OpSDC1:
		addr := r.GetGPR(in.RS) + uint32(in.Imm)
		d := r.GetFPDouble(in.FT)
		if err := c.Memory.WriteWord(addr, uint32(d)); err != nil {
			return e.memFault(c, err)
		}
		if err := c.Memory.WriteWord(addr+4, uint32(d>>32)); err != nil {
			return e.memFault(c, err)
		}

	case OpMFC1:
		r.SetGPR(in.RT, r.GetFPSingle(in.FS))
	case OpMTC1:
		r.SetFPSingle(in.FS, r.GetGPR(in.RT))
	case OpCFC1:
		r.SetGPR(in.RT, r.readFPControl(in.FS))
	case OpCTC1:
		r.writeFPControl(in.FS, r.GetGPR(in.RT))

	case OpFPUCOMPARE:
		return e.execFPUCompare(c, in)

	case OpMOVF, OpMOVT:
		want := in.Op == OpMOVT
		if r.FCC(in.CC) == want {
			r.SetGPR(in.RD, r.GetGPR(in.RS))
		}
	case OpMOVFFPU, OpMOVTFPU:
		want := in.Op == OpMOVTFPU
		if r.FCC(in.CC) == want {
			writeFPValue(r, in.FD, in.FPFmt, readFPValue(r, in.FS, in.FPFmt))
		}
	case OpMOVNFPU:
		if r.GetGPR(in.RT) != 0 {
			writeFPValue(r, in.FD, in.FPFmt, readFPValue(r, in.FS, in.FPFmt))
		}
	case OpMOVZFPU:
		if r.GetGPR(in.RT) == 0 {
			writeFPValue(r, in.FD, in.FPFmt, readFPValue(r, in.FS, in.FPFmt))
		}

	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown FPU opcode"}
	}
	return nil
}

// readFPValue/writeFPValue move an FPU operand as a plain bit pattern,
// letting the compare/convert helpers reinterpret it as float32/float64/int32
// as needed without duplicating the single/double aliasing rules already in
// registers.go.
func readFPValue(r *Registers, n int, fmt FPFmt) uint64 {
	if fmt == FmtDouble {
		return r.GetFPDouble(n)
	}
	return uint64(r.GetFPSingle(n))
}

func writeFPValue(r *Registers, n int, fmt FPFmt, v uint64) {
	if fmt == FmtDouble {
		r.SetFPDouble(n, v)
		return
	}
	r.SetFPSingle(n, uint32(v))
}

func (e *Engine) execFPUBinary(c *Context, in *Instruction) error {
	r := c.Registers
	if in.FPFmt == FmtDouble {
		a := math.Float64frombits(r.GetFPDouble(in.FS))
		b := math.Float64frombits(r.GetFPDouble(in.FT))
		var result float64
		switch in.Op {
		case OpFPUADD:
			result = a + b
		case OpFPUSUB:
			result = a - b
		case OpFPUMUL:
			result = a * b
		case OpFPUDIV:
			result = a / b
		}
		r.SetFPDouble(in.FD, math.Float64bits(result))
		return nil
	}
	a := math.Float32frombits(r.GetFPSingle(in.FS))
	b := math.Float32frombits(r.GetFPSingle(in.FT))
	var result float32
	switch in.Op {
	case OpFPUADD:
		result = a + b
	case OpFPUSUB:
		result = a - b
	case OpFPUMUL:
		result = a * b
	case OpFPUDIV:
		result = a / b
	}
	r.SetFPSingle(in.FD, math.Float32bits(result))
	return nil
}

func (e *Engine) execFPUUnary(c *Context, in *Instruction) error {
	r := c.Registers
	if in.FPFmt == FmtDouble {
		a := math.Float64frombits(r.GetFPDouble(in.FS))
		var result float64
		switch in.Op {
		case OpFPUABS:
			result = math.Abs(a)
		case OpFPUNEG:
			result = -a
		case OpFPUSQRT:
			result = math.Sqrt(a)
		case OpFPUMOV:
			result = a
		}
		r.SetFPDouble(in.FD, math.Float64bits(result))
		return nil
	}
	a := math.Float32frombits(r.GetFPSingle(in.FS))
	var result float32
	switch in.Op {
	case OpFPUABS:
		result = float32(math.Abs(float64(a)))
	case OpFPUNEG:
		result = -a
	case OpFPUSQRT:
		result = float32(math.Sqrt(float64(a)))
	case OpFPUMOV:
		result = a
	}
	r.SetFPSingle(in.FD, math.Float32bits(result))
	return nil
}

// execFPURoundToW converts a source S/D value to a 32-bit integer using the
// rounding mode the opcode names, storing the result in FD's word view.
func (e *Engine) execFPURoundToW(c *Context, in *Instruction) error {
	r := c.Registers
	var src float64
	if in.FPFmt == FmtDouble {
		src = math.Float64frombits(r.GetFPDouble(in.FS))
	} else {
		src = float64(math.Float32frombits(r.GetFPSingle(in.FS)))
	}

	var rounded float64
	switch in.Op {
	case OpFPUCEILW:
		rounded = math.Ceil(src)
	case OpFPUFLOORW:
		rounded = math.Floor(src)
	case OpFPUROUNDW:
		rounded = math.Round(src)
	case OpFPUTRUNCW:
		rounded = math.Trunc(src)
	}
	r.SetFPSingle(in.FD, uint32(int32(rounded)))
	return nil
}

// execFPUConvert implements CVT.fmt, dispatching on the raw function field
// stashed in in.Shamt at decode time (0x20 cvt.s, 0x21 cvt.d, 0x24 cvt.w) to
// pick the destination format; the source format is in.FPFmt.
func (e *Engine) execFPUConvert(c *Context, in *Instruction) error {
	r := c.Registers

	var src float64
	switch in.FPFmt {
	case FmtDouble:
		src = math.Float64frombits(r.GetFPDouble(in.FS))
	case FmtWord:
		src = float64(int32(r.GetFPSingle(in.FS)))
	default:
		src = float64(math.Float32frombits(r.GetFPSingle(in.FS)))
	}

	switch in.Shamt {
	case 0x20: // cvt.s
		r.SetFPSingle(in.FD, math.Float32bits(float32(src)))
	case 0x21: // cvt.d
		r.SetFPDouble(in.FD, math.Float64bits(src))
	case 0x24: // cvt.w
		r.SetFPSingle(in.FD, uint32(int32(math.Trunc(src))))
	default:
		return &EngineHaltError{CtxID: c.ID, PC: in.Addr, Msg: "unknown CVT function"}
	}
	return nil
}

// C.cond predicate bits: the condition is (less && LT) || (equal && EQ) ||
// (unordered && UN), and IN marks the signaling predicates (C.LT vs C.OLT)
// that raise FPE instead of quietly reporting "unordered".
const (
	fpCondUN = 0x1
	fpCondEQ = 0x2
	fpCondLT = 0x4
	fpCondIN = 0x8
)

func (e *Engine) execFPUCompare(c *Context, in *Instruction) error {
	r := c.Registers
	pred := in.Shamt & 0xF

	var lt, eq, unordered bool
	if in.FPFmt == FmtDouble {
		a := math.Float64frombits(r.GetFPDouble(in.FS))
		b := math.Float64frombits(r.GetFPDouble(in.FT))
		unordered = math.IsNaN(a) || math.IsNaN(b)
		if !unordered {
			lt, eq = a < b, a == b
		}
	} else {
		a := math.Float32frombits(r.GetFPSingle(in.FS))
		b := math.Float32frombits(r.GetFPSingle(in.FT))
		unordered = math.IsNaN(float64(a)) || math.IsNaN(float64(b))
		if !unordered {
			lt, eq = a < b, a == b
		}
	}

	if unordered && pred&fpCondIN != 0 {
		return e.raiseFPE(c)
	}

	result := (pred&fpCondLT != 0 && lt) ||
		(pred&fpCondEQ != 0 && eq) ||
		(pred&fpCondUN != 0 && unordered)
	r.SetFCC(in.CC, result)
	return nil
}

// fpBranchOutcome reports whether BC1T/BC1F(L) is taken, reading the FP
// condition code in.CC names; the target formula matches branchOutcome's.
func fpBranchOutcome(c *Context, in *Instruction) (taken bool, target uint32) {
	r := c.Registers
	target = in.Addr + 4 + uint32(in.Imm<<2)
	cc := r.FCC(in.CC)
	switch in.Op {
	case OpBC1T, OpBC1TL:
		taken = cc
	case OpBC1F, OpBC1FL:
		taken = !cc
	}
	return taken, target
}

// readFPControl/writeFPControl model CFC1/CTC1's tiny register space: FIR at
// 0 (read-only) and FCSR at 31; other indices are unimplemented and read
// back as zero, matching readCP0's treatment of unmodeled CP0 registers.
func (r *Registers) readFPControl(reg int) uint32 {
	switch reg {
	case 0:
		return r.FIR
	case 31:
		return r.FCSR
	default:
		return 0
	}
}

func (r *Registers) writeFPControl(reg int, v uint32) {
	if reg == 31 {
		r.FCSR = v
	}
}
