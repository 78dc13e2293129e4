package vm

// Decode turns a raw 32-bit MIPS32 word into a decoded Instruction. It is
// used both by the memory image's text-segment writer (self-modifying code
// re-decodes on every raw-word store) and, by whatever external assembler
// a caller wires up, to produce the decoded records the loader installs.
func Decode(addr, word uint32) *Instruction {
	inst := &Instruction{
		Addr: addr,
		Raw:  word,
		RS:   int((word >> 21) & 0x1F),
		RT:   int((word >> 16) & 0x1F),
		RD:   int((word >> 11) & 0x1F),
		Shamt: int((word >> 6) & 0x1F),
	}
	imm16 := int16(word & 0xFFFF)
	inst.Imm = int32(imm16)
	inst.Target = word & 0x03FFFFFF

	switch op := (word >> 26) & 0x3F; op {
	case 0x00: // SPECIAL
		decodeSpecial(inst, word)
	case 0x01: // REGIMM
		decodeRegimm(inst, word)
	case 0x02:
		inst.Op = OpJ
	case 0x03:
		inst.Op = OpJAL
	case 0x04:
		inst.Op = OpBEQ
	case 0x05:
		inst.Op = OpBNE
	case 0x06:
		inst.Op = OpBLEZ
	case 0x07:
		inst.Op = OpBGTZ
	case 0x08:
		inst.Op = OpADDI
	case 0x09:
		inst.Op = OpADDIU
	case 0x0A:
		inst.Op = OpSLTI
	case 0x0B:
		inst.Op = OpSLTIU
	case 0x0C:
		inst.Op = OpANDI
		inst.Imm = int32(uint16(word & 0xFFFF)) // zero-extended
	case 0x0D:
		inst.Op = OpORI
		inst.Imm = int32(uint16(word & 0xFFFF))
	case 0x0E:
		inst.Op = OpXORI
		inst.Imm = int32(uint16(word & 0xFFFF))
	case 0x0F:
		inst.Op = OpLUI
		inst.Imm = int32(uint16(word & 0xFFFF))
	case 0x10:
		decodeCop0(inst, word)
	case 0x12:
		inst.Op = OpCOP2
	case 0x14:
		inst.Op = OpBEQL
	case 0x15:
		inst.Op = OpBNEL
	case 0x16:
		inst.Op = OpBLEZL
	case 0x17:
		inst.Op = OpBGTZL
	case 0x1C:
		decodeSpecial2(inst, word)
	case 0x20:
		inst.Op = OpLB
	case 0x21:
		inst.Op = OpLH
	case 0x22:
		inst.Op = OpLWL
	case 0x23:
		inst.Op = OpLW
	case 0x24:
		inst.Op = OpLBU
	case 0x25:
		inst.Op = OpLHU
	case 0x26:
		inst.Op = OpLWR
	case 0x28:
		inst.Op = OpSB
	case 0x29:
		inst.Op = OpSH
	case 0x2A:
		inst.Op = OpSWL
	case 0x2B:
		inst.Op = OpSW
	case 0x2E:
		inst.Op = OpSWR
	case 0x2F:
		inst.Op = OpCACHE
	case 0x30:
		inst.Op = OpLL
	case 0x31:
		decodeLWC1(inst, word)
	case 0x33:
		inst.Op = OpPREF
	case 0x35:
		decodeLDC1(inst, word)
	case 0x38:
		inst.Op = OpSC
	case 0x39:
		decodeSWC1(inst, word)
	case 0x3D:
		decodeSDC1(inst, word)
	case 0x11:
		decodeCop1(inst, word)
	default:
		inst.Op = OpInvalid
	}
	return inst
}

func decodeSpecial(inst *Instruction, word uint32) {
	switch fn := word & 0x3F; fn {
	case 0x00:
		inst.Op = OpSLL // NOP assembles as SLL $zero,$zero,0
	case 0x01: // MOVCI: GPR conditional move on an FP condition code
		if (word>>16)&1 == 1 {
			inst.Op = OpMOVT
		} else {
			inst.Op = OpMOVF
		}
		inst.CC = int((word >> 18) & 0x7)
	case 0x02:
		inst.Op = OpSRL
	case 0x03:
		inst.Op = OpSRA
	case 0x04:
		inst.Op = OpSLLV
	case 0x06:
		inst.Op = OpSRLV
	case 0x07:
		inst.Op = OpSRAV
	case 0x08:
		inst.Op = OpJR
	case 0x09:
		inst.Op = OpJALR
	case 0x0A:
		inst.Op = OpMOVZ
	case 0x0B:
		inst.Op = OpMOVN
	case 0x0C:
		inst.Op = OpSYSCALL
	case 0x0D:
		inst.Op = OpBREAK
	case 0x0F:
		inst.Op = OpSYNC
	case 0x10:
		inst.Op = OpMFHI
	case 0x11:
		inst.Op = OpMTHI
	case 0x12:
		inst.Op = OpMFLO
	case 0x13:
		inst.Op = OpMTLO
	case 0x18:
		inst.Op = OpMULT
	case 0x19:
		inst.Op = OpMULTU
	case 0x1A:
		inst.Op = OpDIV
	case 0x1B:
		inst.Op = OpDIVU
	case 0x20:
		inst.Op = OpADD
	case 0x21:
		inst.Op = OpADDU
	case 0x22:
		inst.Op = OpSUB
	case 0x23:
		inst.Op = OpSUBU
	case 0x24:
		inst.Op = OpAND
	case 0x25:
		inst.Op = OpOR
	case 0x26:
		inst.Op = OpXOR
	case 0x27:
		inst.Op = OpNOR
	case 0x2A:
		inst.Op = OpSLT
	case 0x2B:
		inst.Op = OpSLTU
	case 0x30:
		inst.Op = OpTGE
	case 0x31:
		inst.Op = OpTGEU
	case 0x32:
		inst.Op = OpTLT
	case 0x33:
		inst.Op = OpTLTU
	case 0x34:
		inst.Op = OpTEQ
	case 0x36:
		inst.Op = OpTNE
	default:
		inst.Op = OpInvalid
	}
}

func decodeRegimm(inst *Instruction, word uint32) {
	switch rt := (word >> 16) & 0x1F; rt {
	case 0x00:
		inst.Op = OpBLTZ
	case 0x01:
		inst.Op = OpBGEZ
	case 0x02:
		inst.Op = OpBLTZL
	case 0x03:
		inst.Op = OpBGEZL
	case 0x08:
		inst.Op = OpTGEI
	case 0x09:
		inst.Op = OpTGEIU
	case 0x0A:
		inst.Op = OpTLTI
	case 0x0B:
		inst.Op = OpTLTIU
	case 0x0C:
		inst.Op = OpTEQI
	case 0x0E:
		inst.Op = OpTNEI
	case 0x10:
		inst.Op = OpBLTZAL
	case 0x11:
		inst.Op = OpBGEZAL
	case 0x12:
		inst.Op = OpBLTZALL
	case 0x13:
		inst.Op = OpBGEZALL
	default:
		inst.Op = OpInvalid
	}
}

func decodeSpecial2(inst *Instruction, word uint32) {
	switch fn := word & 0x3F; fn {
	case 0x00:
		inst.Op = OpMADD
	case 0x01:
		inst.Op = OpMADDU
	case 0x02:
		inst.Op = OpMUL
	case 0x04:
		inst.Op = OpMSUB
	case 0x05:
		inst.Op = OpMSUBU
	case 0x20:
		inst.Op = OpCLZ
	case 0x21:
		inst.Op = OpCLO
	default:
		inst.Op = OpInvalid
	}
}

func decodeCop0(inst *Instruction, word uint32) {
	rs := (word >> 21) & 0x1F
	switch {
	case rs == 0x00:
		inst.Op = OpMFC0
	case rs == 0x02:
		inst.Op = OpCFC0
	case rs == 0x04:
		inst.Op = OpMTC0
	case rs == 0x06:
		inst.Op = OpCTC0
	case word&0x03FFFFFF == 0x18:
		inst.Op = OpERET
	default:
		// CO-bit function space: TLBR/TLBWI/TLBWR/TLBP and friends, all
		// reserved-instruction in this implementation.
		inst.Op = OpTLBOp
	}
}

func decodeCop1(inst *Instruction, word uint32) {
	rs := (word >> 21) & 0x1F
	switch rs {
	case 0x00:
		inst.Op = OpMFC1
		inst.FS = int((word >> 11) & 0x1F)
	case 0x02:
		inst.Op = OpCFC1
		inst.FS = int((word >> 11) & 0x1F)
	case 0x04:
		inst.Op = OpMTC1
		inst.FS = int((word >> 11) & 0x1F)
	case 0x06:
		inst.Op = OpCTC1
		inst.FS = int((word >> 11) & 0x1F)
	case 0x08: // BC1
		inst.CC = int((word >> 18) & 0x7)
		switch (word >> 16) & 0x3 {
		case 0x0:
			inst.Op = OpBC1F
		case 0x1:
			inst.Op = OpBC1T
		case 0x2:
			inst.Op = OpBC1FL
		case 0x3:
			inst.Op = OpBC1TL
		}
	case 0x10: // S
		decodeCop1Function(inst, word, FmtSingle)
	case 0x11: // D
		decodeCop1Function(inst, word, FmtDouble)
	case 0x14: // W
		decodeCop1Function(inst, word, FmtWord)
	default:
		inst.Op = OpInvalid
	}
}

func decodeCop1Function(inst *Instruction, word uint32, fmtTag FPFmt) {
	inst.FPFmt = fmtTag
	inst.FT = int((word >> 16) & 0x1F)
	inst.FS = int((word >> 11) & 0x1F)
	inst.FD = int((word >> 6) & 0x1F)
	fn := word & 0x3F

	if fn >= 0x30 { // C.cond.fmt
		inst.Op = OpFPUCOMPARE
		inst.CC = int((word >> 8) & 0x7)
		inst.Shamt = int(fn & 0xF) // condition predicate, reused field
		return
	}

	switch fn {
	case 0x00:
		inst.Op = OpFPUADD
	case 0x01:
		inst.Op = OpFPUSUB
	case 0x02:
		inst.Op = OpFPUMUL
	case 0x03:
		inst.Op = OpFPUDIV
	case 0x04:
		inst.Op = OpFPUSQRT
	case 0x05:
		inst.Op = OpFPUABS
	case 0x06:
		inst.Op = OpFPUMOV
	case 0x07:
		inst.Op = OpFPUNEG
	case 0x0C:
		inst.Op = OpFPUROUNDW // round.w
	case 0x0D:
		inst.Op = OpFPUTRUNCW
	case 0x0E:
		inst.Op = OpFPUCEILW
	case 0x0F:
		inst.Op = OpFPUFLOORW
	case 0x11: // MOVCF / MOVT.fmt/MOVF.fmt share the "11" function slot, tc bit selects
		if (word>>16)&1 == 1 {
			inst.Op = OpMOVTFPU
		} else {
			inst.Op = OpMOVFFPU
		}
		inst.CC = int((word >> 18) & 0x7)
	case 0x12:
		inst.Op = OpMOVZFPU
	case 0x13:
		inst.Op = OpMOVNFPU
	case 0x20, 0x21, 0x24:
		inst.Op = OpFPUCVT // cvt.s / cvt.d / cvt.w, destination fmt decided by fn at execute time
		inst.Shamt = int(fn)
	default:
		inst.Op = OpInvalid
	}
}

func decodeLWC1(inst *Instruction, word uint32) {
	inst.Op = OpLWC1
	inst.FT = int((word >> 16) & 0x1F)
}

func decodeSWC1(inst *Instruction, word uint32) {
	inst.Op = OpSWC1
	inst.FT = int((word >> 16) & 0x1F)
}

func decodeLDC1(inst *Instruction, word uint32) {
	inst.Op = OpLDC1
	inst.FT = int((word >> 16) & 0x1F)
}

func decodeSDC1(inst *Instruction, word uint32) {
	inst.Op = OpSDC1
	inst.FT = int((word >> 16) & 0x1F)
}
