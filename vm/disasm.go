package vm

import (
	"fmt"
	"strings"
)

// gprNames follows the standard MIPS ABI register naming.
var gprNames = [32]string{
	"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
}

var opMnemonics = map[Op]string{
	OpADD: "add", OpADDI: "addi", OpADDU: "addu", OpADDIU: "addiu",
	OpSUB: "sub", OpSUBU: "subu",
	OpAND: "and", OpANDI: "andi", OpOR: "or", OpORI: "ori",
	OpXOR: "xor", OpXORI: "xori", OpNOR: "nor", OpLUI: "lui",
	OpSLL: "sll", OpSRL: "srl", OpSRA: "sra",
	OpSLLV: "sllv", OpSRLV: "srlv", OpSRAV: "srav",
	OpSLT: "slt", OpSLTI: "slti", OpSLTU: "sltu", OpSLTIU: "sltiu",
	OpMULT: "mult", OpMULTU: "multu", OpMUL: "mul",
	OpMADD: "madd", OpMADDU: "maddu", OpMSUB: "msub", OpMSUBU: "msubu",
	OpDIV: "div", OpDIVU: "divu",
	OpMFHI: "mfhi", OpMFLO: "mflo", OpMTHI: "mthi", OpMTLO: "mtlo",
	OpBEQ: "beq", OpBNE: "bne", OpBLEZ: "blez", OpBGTZ: "bgtz",
	OpBLTZ: "bltz", OpBGEZ: "bgez", OpBLTZAL: "bltzal", OpBGEZAL: "bgezal",
	OpBEQL: "beql", OpBNEL: "bnel", OpBLEZL: "blezl", OpBGTZL: "bgtzl",
	OpBLTZL: "bltzl", OpBGEZL: "bgezl", OpBLTZALL: "bltzall", OpBGEZALL: "bgezall",
	OpJ: "j", OpJAL: "jal", OpJR: "jr", OpJALR: "jalr",
	OpLB: "lb", OpLBU: "lbu", OpLH: "lh", OpLHU: "lhu", OpLW: "lw",
	OpLWL: "lwl", OpLWR: "lwr", OpLL: "ll",
	OpSB: "sb", OpSH: "sh", OpSW: "sw", OpSWL: "swl", OpSWR: "swr", OpSC: "sc",
	OpMFC0: "mfc0", OpMTC0: "mtc0", OpCFC0: "cfc0", OpCTC0: "ctc0", OpERET: "eret",
	OpCOP2: "cop2",
	OpTEQ:  "teq", OpTNE: "tne", OpTLT: "tlt", OpTLTU: "tltu",
	OpTGE: "tge", OpTGEU: "tgeu",
	OpTEQI: "teqi", OpTNEI: "tnei", OpTLTI: "tlti", OpTLTIU: "tltiu",
	OpTGEI: "tgei", OpTGEIU: "tgeiu",
	OpSYSCALL: "syscall", OpBREAK: "break", OpSYNC: "sync",
	OpPREF: "pref", OpCACHE: "cache",
	OpCLO: "clo", OpCLZ: "clz", OpMOVN: "movn", OpMOVZ: "movz",
	OpTLBOp: "tlb",
	OpFPUABS: "abs", OpFPUADD: "add", OpFPUSUB: "sub", OpFPUMUL: "mul",
	OpFPUDIV: "div", OpFPUNEG: "neg", OpFPUSQRT: "sqrt", OpFPUMOV: "mov",
	OpFPUCEILW: "ceil.w", OpFPUFLOORW: "floor.w",
	OpFPUROUNDW: "round.w", OpFPUTRUNCW: "trunc.w", OpFPUCVT: "cvt",
	OpLWC1: "lwc1", OpSWC1: "swc1", OpLDC1: "ldc1", OpSDC1: "sdc1",
	OpMFC1: "mfc1", OpMTC1: "mtc1", OpCFC1: "cfc1", OpCTC1: "ctc1",
	OpFPUCOMPARE: "c", OpBC1T: "bc1t", OpBC1F: "bc1f",
	OpBC1TL: "bc1tl", OpBC1FL: "bc1fl",
	OpMOVF: "movf", OpMOVT: "movt",
	OpMOVFFPU: "movf", OpMOVTFPU: "movt",
	OpMOVNFPU: "movn", OpMOVZFPU: "movz",
}

func fmtSuffix(f FPFmt) string {
	switch f {
	case FmtSingle:
		return ".s"
	case FmtDouble:
		return ".d"
	case FmtWord:
		return ".w"
	default:
		return ""
	}
}

// Disassemble renders the instruction as assembly text, without address or
// encoding columns; String adds both for listing output.
func (i *Instruction) Disassemble() string {
	m, ok := opMnemonics[i.Op]
	if !ok {
		return fmt.Sprintf(".word 0x%08x", i.Raw)
	}

	switch i.Op {
	case OpSYSCALL, OpBREAK, OpSYNC, OpERET:
		return m

	case OpSLL:
		if i.Raw == 0 {
			return "nop"
		}
		return fmt.Sprintf("%s %s, %s, %d", m, gprNames[i.RD], gprNames[i.RT], i.Shamt)
	case OpSRL, OpSRA:
		return fmt.Sprintf("%s %s, %s, %d", m, gprNames[i.RD], gprNames[i.RT], i.Shamt)
	case OpSLLV, OpSRLV, OpSRAV:
		return fmt.Sprintf("%s %s, %s, %s", m, gprNames[i.RD], gprNames[i.RT], gprNames[i.RS])

	case OpADD, OpADDU, OpSUB, OpSUBU, OpAND, OpOR, OpXOR, OpNOR,
		OpSLT, OpSLTU, OpMOVN, OpMOVZ, OpMUL:
		return fmt.Sprintf("%s %s, %s, %s", m, gprNames[i.RD], gprNames[i.RS], gprNames[i.RT])

	case OpADDI, OpADDIU, OpSLTI, OpSLTIU:
		return fmt.Sprintf("%s %s, %s, %d", m, gprNames[i.RT], gprNames[i.RS], i.Imm)
	case OpANDI, OpORI, OpXORI:
		return fmt.Sprintf("%s %s, %s, 0x%x", m, gprNames[i.RT], gprNames[i.RS], uint32(i.Imm)&0xFFFF)
	case OpLUI:
		return fmt.Sprintf("%s %s, 0x%x", m, gprNames[i.RT], uint32(i.Imm)&0xFFFF)

	case OpMULT, OpMULTU, OpMADD, OpMADDU, OpMSUB, OpMSUBU, OpDIV, OpDIVU,
		OpTEQ, OpTNE, OpTLT, OpTLTU, OpTGE, OpTGEU:
		return fmt.Sprintf("%s %s, %s", m, gprNames[i.RS], gprNames[i.RT])
	case OpTEQI, OpTNEI, OpTLTI, OpTLTIU, OpTGEI, OpTGEIU:
		return fmt.Sprintf("%s %s, %d", m, gprNames[i.RS], i.Imm)
	case OpMFHI, OpMFLO:
		return fmt.Sprintf("%s %s", m, gprNames[i.RD])
	case OpMTHI, OpMTLO:
		return fmt.Sprintf("%s %s", m, gprNames[i.RS])
	case OpCLO, OpCLZ:
		return fmt.Sprintf("%s %s, %s", m, gprNames[i.RD], gprNames[i.RS])

	case OpBEQ, OpBNE, OpBEQL, OpBNEL:
		return fmt.Sprintf("%s %s, %s, 0x%08x", m, gprNames[i.RS], gprNames[i.RT], i.branchTarget())
	case OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ, OpBLTZAL, OpBGEZAL,
		OpBLEZL, OpBGTZL, OpBLTZL, OpBGEZL, OpBLTZALL, OpBGEZALL:
		return fmt.Sprintf("%s %s, 0x%08x", m, gprNames[i.RS], i.branchTarget())

	case OpJ, OpJAL:
		return fmt.Sprintf("%s 0x%08x", m, (i.Addr&0xF0000000)|(i.Target<<2))
	case OpJR:
		return fmt.Sprintf("%s %s", m, gprNames[i.RS])
	case OpJALR:
		if i.RD == 31 || i.RD == 0 {
			return fmt.Sprintf("%s %s", m, gprNames[i.RS])
		}
		return fmt.Sprintf("%s %s, %s", m, gprNames[i.RD], gprNames[i.RS])

	case OpLB, OpLBU, OpLH, OpLHU, OpLW, OpLWL, OpLWR, OpLL,
		OpSB, OpSH, OpSW, OpSWL, OpSWR, OpSC:
		return fmt.Sprintf("%s %s, %d(%s)", m, gprNames[i.RT], i.Imm, gprNames[i.RS])

	case OpMFC0, OpMTC0, OpCFC0, OpCTC0:
		return fmt.Sprintf("%s %s, $%d", m, gprNames[i.RT], i.RD)

	case OpPREF, OpCACHE:
		return fmt.Sprintf("%s %d, %d(%s)", m, i.RT, i.Imm, gprNames[i.RS])

	case OpLWC1, OpSWC1, OpLDC1, OpSDC1:
		return fmt.Sprintf("%s $f%d, %d(%s)", m, i.FT, i.Imm, gprNames[i.RS])
	case OpMFC1, OpMTC1, OpCFC1, OpCTC1:
		return fmt.Sprintf("%s %s, $f%d", m, gprNames[i.RT], i.FS)

	case OpFPUADD, OpFPUSUB, OpFPUMUL, OpFPUDIV:
		return fmt.Sprintf("%s%s $f%d, $f%d, $f%d", m, fmtSuffix(i.FPFmt), i.FD, i.FS, i.FT)
	case OpFPUABS, OpFPUNEG, OpFPUSQRT, OpFPUMOV:
		return fmt.Sprintf("%s%s $f%d, $f%d", m, fmtSuffix(i.FPFmt), i.FD, i.FS)
	case OpFPUCEILW, OpFPUFLOORW, OpFPUROUNDW, OpFPUTRUNCW:
		return fmt.Sprintf("%s%s $f%d, $f%d", m, fmtSuffix(i.FPFmt), i.FD, i.FS)
	case OpFPUCVT:
		return fmt.Sprintf("cvt%s%s $f%d, $f%d", cvtDestSuffix(i.Shamt), fmtSuffix(i.FPFmt), i.FD, i.FS)
	case OpFPUCOMPARE:
		return fmt.Sprintf("c.%s%s %d, $f%d, $f%d", fpPredName(i.Shamt&0xF), fmtSuffix(i.FPFmt), i.CC, i.FS, i.FT)
	case OpBC1T, OpBC1F, OpBC1TL, OpBC1FL:
		return fmt.Sprintf("%s %d, 0x%08x", m, i.CC, i.branchTarget())
	case OpMOVF, OpMOVT:
		return fmt.Sprintf("%s %s, %s, %d", m, gprNames[i.RD], gprNames[i.RS], i.CC)
	case OpMOVFFPU, OpMOVTFPU:
		return fmt.Sprintf("%s%s $f%d, $f%d, %d", m, fmtSuffix(i.FPFmt), i.FD, i.FS, i.CC)
	case OpMOVNFPU, OpMOVZFPU:
		return fmt.Sprintf("%s%s $f%d, $f%d, %s", m, fmtSuffix(i.FPFmt), i.FD, i.FS, gprNames[i.RT])

	default:
		return m
	}
}

func (i *Instruction) branchTarget() uint32 {
	return i.Addr + 4 + uint32(i.Imm<<2)
}

func cvtDestSuffix(fn int) string {
	switch fn {
	case 0x20:
		return ".s"
	case 0x21:
		return ".d"
	case 0x24:
		return ".w"
	default:
		return ""
	}
}

var fpPredNames = [16]string{
	"f", "un", "eq", "ueq", "olt", "ult", "ole", "ule",
	"sf", "ngle", "seq", "ngl", "lt", "nge", "le", "ngt",
}

func fpPredName(pred int) string {
	return fpPredNames[pred&0xF]
}

// String renders a full listing line: address, raw encoding, and assembly,
// with the source annotation appended when the assembler supplied one.
func (i *Instruction) String() string {
	line := fmt.Sprintf("0x%08x  0x%08x  %s", i.Addr, i.Raw, i.Disassemble())
	if i.SourceLine != "" {
		line += "  ; " + strings.TrimSpace(i.SourceLine)
	}
	return line
}

// DisassembleText renders one listing line per occupied slot of the text
// segment starting at base, for the reader interface's formatted text views.
func (m *Memory) DisassembleText(kernel bool) []string {
	seg := m.Text
	if kernel {
		seg = m.KText
	}
	var out []string
	for _, inst := range seg.insts {
		if inst == nil {
			continue
		}
		out = append(out, inst.String())
	}
	return out
}
