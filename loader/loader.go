// Package loader installs an assembled program image into a fresh vm.Context:
// it sizes the context's text/data segments, writes decoded instructions and
// raw data bytes, patches label references left unresolved by the assembler,
// and seeds PC/nPC, $sp and $gp for the context's first cycle.
package loader

import (
	"fmt"

	"github.com/mips32sim/mips32sim/vm"
)

// Program is the assembler-output contract: everything a loader needs to
// install a runnable image. Text/KText carry fully decoded instructions,
// indexed from address 0 of their respective segment; Data/KData are raw
// little/big-endian-agnostic byte images written verbatim. Symbols resolves
// the Label references any instruction in Text/KText may still carry.
type Program struct {
	Text    []*vm.Instruction
	Data    []byte
	KText   []*vm.Instruction
	KData   []byte
	Entry   uint32
	Symbols map[string]uint32
}

// Load installs prog into ctx's memory image: grows each segment to fit,
// writes instructions and data, patches unresolved labels, and points PC at
// the entry address. It returns an error if any label reference cannot be
// resolved against prog.Symbols.
func Load(ctx *vm.Context, prog *Program) error {
	if err := patchLabels(prog); err != nil {
		return err
	}

	if err := installText(ctx.Memory, vm.TextBase, prog.Text, ctx.Memory.GrowText); err != nil {
		return err
	}
	if err := installText(ctx.Memory, vm.KTextBase, prog.KText, ctx.Memory.GrowKText); err != nil {
		return err
	}

	if err := installData(ctx.Memory, vm.DataBase, prog.Data, ctx.Memory.GrowData); err != nil {
		return err
	}
	if err := installData(ctx.Memory, vm.KDataBase, prog.KData, ctx.Memory.GrowKData); err != nil {
		return err
	}

	entry := prog.Entry
	if entry == 0 {
		entry = vm.TextBase
	}
	ctx.Registers.PC = entry
	ctx.Registers.NPC = entry + 4

	ctx.Registers.SetGPR(29, vm.StackTop&^0x7) // $sp, double-word aligned
	ctx.Registers.SetGPR(28, vm.GlobalPointerDefault) // $gp

	ctx.Registers.NextDataPC = vm.DataBase + roundUp4(uint32(len(prog.Data)))
	ctx.Registers.NextKDataPC = vm.KDataBase + roundUp4(uint32(len(prog.KData)))
	ctx.Registers.NextTextPC = vm.TextBase + uint32(len(prog.Text))*4
	ctx.Registers.NextKTextPC = vm.KTextBase + uint32(len(prog.KText))*4
	ctx.Registers.NextGPItemAddr = vm.GlobalPointerDefault

	return nil
}

func installText(m *vm.Memory, base uint32, insts []*vm.Instruction, grow func(int)) error {
	if len(insts) == 0 {
		return nil
	}
	grow(len(insts))
	for i, inst := range insts {
		if inst == nil {
			continue
		}
		addr := base + uint32(i)*4
		if err := m.WriteInst(addr, inst); err != nil {
			return fmt.Errorf("loader: installing instruction at 0x%08X: %w", addr, err)
		}
	}
	return nil
}

func installData(m *vm.Memory, base uint32, data []byte, grow func(uint32) error) error {
	if len(data) == 0 {
		return nil
	}
	size, err := vm.SafeIntToUint32(len(data))
	if err != nil {
		return fmt.Errorf("loader: data segment at 0x%08X: %w", base, err)
	}
	if err := grow(size); err != nil {
		return fmt.Errorf("loader: sizing data segment at 0x%08X: %w", base, err)
	}
	for i, b := range data {
		if err := m.WriteByte(base+uint32(i), b); err != nil {
			return fmt.Errorf("loader: writing data byte at 0x%08X: %w", base+uint32(i), err)
		}
	}
	return nil
}

// patchLabels resolves every still-unresolved vm.UnresolvedLabel in the
// program's text segments against prog.Symbols, folding in PC-relative
// and %hi/%lo half-select handling.
func patchLabels(prog *Program) error {
	if err := patchSegment(prog.Text, vm.TextBase, prog.Symbols); err != nil {
		return err
	}
	return patchSegment(prog.KText, vm.KTextBase, prog.Symbols)
}

func patchSegment(insts []*vm.Instruction, base uint32, symbols map[string]uint32) error {
	for i, inst := range insts {
		if inst == nil || inst.Resolved() {
			continue
		}
		lbl := inst.Label
		target, ok := symbols[lbl.Symbol]
		if !ok {
			addr := base + uint32(i)*4
			return fmt.Errorf("loader: undefined reference to %q at 0x%08X", lbl.Symbol, addr)
		}
		value := int64(target) + int64(lbl.Offset)

		var patched uint32
		addr := base + uint32(i)*4
		switch {
		case lbl.PCRelative:
			patched = uint32(value-int64(addr)-4) >> 2
			inst.Imm = int32(patched)
		case lbl.HalfSelect == 1:
			hi := uint32(value) >> 16
			if uint32(value)&0x8000 != 0 {
				hi++ // account for %lo's sign-extension when added back
			}
			inst.Imm = int32(hi)
		case inst.Op.IsJump() && !inst.Op.IsBranch():
			inst.Target = (uint32(value) & 0x0FFFFFFF) >> 2
		default:
			inst.Imm = int32(uint32(value))
		}
		inst.MarkResolved()
	}
	return nil
}

func roundUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}
