package vm

import (
	"bytes"
	"testing"
)

// newTestContext returns a context with its own buffered stdout/stderr so
// tests can inspect program output directly, grounded on the same
// NewContext constructor main.go uses.
func newTestContext(mode ModeFlags) (*Context, *bytes.Buffer) {
	ctx := NewContext(0, mode, DefaultDataLimit, DefaultKDataLimit, DefaultStackLimit)
	var out bytes.Buffer
	ctx.Stdout = newPrefixedSink(0, "ctx", &out)
	return ctx, &out
}

// install writes already-decoded instructions into the text segment
// starting at TextBase, growing it to fit.
func install(t *testing.T, ctx *Context, insts []*Instruction) {
	t.Helper()
	ctx.Memory.GrowText(len(insts))
	for i, in := range insts {
		addr := TextBase + uint32(i)*4
		in.Addr = addr
		if err := ctx.Memory.WriteInst(addr, in); err != nil {
			t.Fatalf("installing instruction %d: %v", i, err)
		}
	}
}

func runUntilHalt(t *testing.T, e *Engine, ctx *Context, maxCycles int) {
	t.Helper()
	ctx.Registers.PC = TextBase
	for i := 0; i < maxCycles; i++ {
		result, err := e.Step(ctx)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if result == Halted {
			return
		}
	}
	t.Fatalf("did not halt within %d cycles", maxCycles)
}

// Scenario 1: Hello ADD.
func TestHelloAdd(t *testing.T) {
	ctx, out := newTestContext(ModeFlags{})
	e := NewEngine()

	install(t, ctx, []*Instruction{
		{Op: OpADDI, RS: 0, RT: 8, Imm: 2},  // addi $t0,$zero,2
		{Op: OpADDI, RS: 0, RT: 9, Imm: 3},  // addi $t1,$zero,3
		{Op: OpADD, RS: 8, RT: 9, RD: 10},   // add $t2,$t0,$t1
		{Op: OpADDI, RS: 0, RT: 2, Imm: 1},  // addi $v0,$zero,1 (print_int)
		{Op: OpADDI, RS: 10, RT: 4, Imm: 0}, // addi $a0,$t2,0
		{Op: OpSYSCALL},
		{Op: OpADDI, RS: 0, RT: 2, Imm: 10}, // addi $v0,$zero,10 (exit)
		{Op: OpSYSCALL},
	})

	runUntilHalt(t, e, ctx, 16)
	_ = ctx.Stdout.Flush()

	if got := out.String(); got != "[ctx0] 5\n" {
		t.Errorf("stdout = %q, want %q", got, "[ctx0] 5\n")
	}
}

// Scenario 2: signed overflow.
func TestSignedOverflow(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()

	install(t, ctx, []*Instruction{
		{Op: OpADDI, RS: 0, RT: 8, Imm: 0x7fffffff}, // addi $t0,$zero,MaxInt32 — won't fit in 16 bits in real asm, fine for a decoded-record test
		{Op: OpADDI, RS: 0, RT: 9, Imm: 1},
		{Op: OpADD, RS: 8, RT: 9, RD: 10}, // add $t2,$t0,$t1 -> overflow
	})

	ctx.Registers.PC = TextBase
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step 2: %v", err)
	}

	addAddr := ctx.Registers.PC
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step 3 (overflowing add): %v", err)
	}

	if ctx.Registers.CP0.EPC != addAddr {
		t.Errorf("EPC = 0x%08X, want 0x%08X (the add's own address)", ctx.Registers.CP0.EPC, addAddr)
	}
	if code := (ctx.Registers.CP0.Cause >> 2) & 0x1F; code != ExcOv {
		t.Errorf("ExcCode = %d, want ExcOv (%d)", code, ExcOv)
	}
	if got := ctx.Registers.GetGPR(10); got != 0 {
		t.Errorf("$t2 = %d, want unchanged (0)", got)
	}
	if ctx.Registers.PC != ExceptionHandlerAddress {
		t.Errorf("PC = 0x%08X, want the exception handler 0x%08X", ctx.Registers.PC, ExceptionHandlerAddress)
	}
}

// Scenario 3: unaligned load raises AdEL with BadVAddr set, and execution
// continues into the handler rather than stopping.
func TestUnalignedLoadRaisesAdEL(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()

	install(t, ctx, []*Instruction{
		{Op: OpLW, RS: 0, RT: 8, Imm: 1}, // lw $t0, 1($zero)
	})
	ctx.Registers.PC = TextBase

	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step: unexpected error: %v", err)
	}

	if code := (ctx.Registers.CP0.Cause >> 2) & 0x1F; code != ExcAdEL {
		t.Errorf("ExcCode = %d, want ExcAdEL (%d)", code, ExcAdEL)
	}
	if ctx.Registers.CP0.BadVAddr != 1 {
		t.Errorf("BadVAddr = %d, want 1", ctx.Registers.CP0.BadVAddr)
	}
	if ctx.Registers.PC != ExceptionHandlerAddress {
		t.Errorf("PC = 0x%08X, want handler 0x%08X", ctx.Registers.PC, ExceptionHandlerAddress)
	}
}

// Scenario 4: a store far below the current stack bottom grows the stack
// rather than faulting, and reads back the stored value.
func TestStackAutoGrow(t *testing.T) {
	m := NewMemory(DefaultDataLimit, DefaultKDataLimit, DefaultStackLimit, false)

	addr := uint32(StackTop&^0xF) - 0x100000
	if err := m.WriteWord(addr, 0xDEADBEEF); err != nil {
		t.Fatalf("WriteWord: unexpected error: %v", err)
	}

	got, err := m.ReadWord(addr)
	if err != nil {
		t.Fatalf("ReadWord: unexpected error: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Errorf("read back 0x%08X, want 0xDEADBEEF", got)
	}
}

// Scenario 5: delayed loads expose the pre-load value to the immediately
// following instruction and the loaded value one instruction later.
func TestDelayedLoad(t *testing.T) {
	mode := ModeFlags{DelayedLoads: true}
	ctx, _ := newTestContext(mode)
	e := NewEngine()

	ctx.Memory.GrowData(4)
	if err := ctx.Memory.WriteWord(DataBase, 42); err != nil {
		t.Fatalf("seeding data word: %v", err)
	}

	ctx.Registers.SetGPR(9, DataBase) // $t1 = &word
	ctx.Registers.SetGPR(8, 0xAAAAAAAA) // $t0 pre-load sentinel

	install(t, ctx, []*Instruction{
		{Op: OpLW, RS: 9, RT: 8, Imm: 0},  // lw $t0, 0($t1)
		{Op: OpADD, RS: 8, RT: 0, RD: 10}, // add $t2,$t0,$zero (sees pre-load value)
		{Op: OpADD, RS: 8, RT: 0, RD: 11}, // add $t3,$t0,$zero (sees loaded value)
	})
	ctx.Registers.PC = TextBase

	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step 1 (lw): %v", err)
	}
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step 2 (add t2): %v", err)
	}
	if got := ctx.Registers.GetGPR(10); got != 0xAAAAAAAA {
		t.Errorf("$t2 = 0x%08X, want the pre-load value 0xAAAAAAAA", got)
	}

	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step 3 (add t3): %v", err)
	}
	if got := ctx.Registers.GetGPR(11); got != 42 {
		t.Errorf("$t3 = %d, want the loaded value 42", got)
	}
}

// Branch-likely not taken nullifies exactly one delay slot.
func TestBranchLikelyNotTakenNullifiesDelaySlot(t *testing.T) {
	mode := ModeFlags{DelayedBranches: true}
	ctx, _ := newTestContext(mode)
	e := NewEngine()

	install(t, ctx, []*Instruction{
		{Op: OpBEQL, RS: 0, RT: 1, Imm: 2}, // beql $zero,$at,+2 (not taken: $zero != $at's nonzero value)
		{Op: OpADDI, RS: 0, RT: 8, Imm: 1}, // nullified delay slot: addi $t0,$zero,1
		{Op: OpADDI, RS: 0, RT: 9, Imm: 2}, // addi $t1,$zero,2
	})
	ctx.Registers.SetGPR(1, 7) // $at != $zero, so BEQL is not taken
	ctx.Registers.PC = TextBase

	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step (beql): %v", err)
	}
	if got := ctx.Registers.GetGPR(8); got != 0 {
		t.Errorf("$t0 = %d, want 0 (delay slot nullified)", got)
	}
	if ctx.Registers.PC != TextBase+8 {
		t.Errorf("PC = 0x%08X, want 0x%08X (skip to fall-through)", ctx.Registers.PC, TextBase+8)
	}
}

// A taken branch under delayed-branch mode executes the delay-slot
// instruction before control transfers to the branch target.
func TestDelayedBranchTakenExecutesDelaySlot(t *testing.T) {
	mode := ModeFlags{DelayedBranches: true}
	ctx, _ := newTestContext(mode)
	e := NewEngine()

	install(t, ctx, []*Instruction{
		{Op: OpBEQ, RS: 0, RT: 0, Imm: 2},  // beq $zero,$zero,+2 (always taken, target = base+12)
		{Op: OpADDI, RS: 0, RT: 8, Imm: 7}, // delay slot: addi $t0,$zero,7
		{Op: OpADDI, RS: 0, RT: 9, Imm: 8}, // skipped
		{Op: OpADDI, RS: 0, RT: 10, Imm: 9},
	})
	ctx.Registers.PC = TextBase

	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step (beq + delay slot): %v", err)
	}
	if got := ctx.Registers.GetGPR(8); got != 7 {
		t.Errorf("$t0 = %d, want 7 (delay slot executed)", got)
	}
	if got := ctx.Registers.GetGPR(9); got != 0 {
		t.Errorf("$t1 = %d, want 0 (skipped by the taken branch)", got)
	}
	if ctx.Registers.PC != TextBase+12 {
		t.Errorf("PC = 0x%08X, want the branch target 0x%08X", ctx.Registers.PC, TextBase+12)
	}
}

func TestJALLinkAddress(t *testing.T) {
	for _, tc := range []struct {
		name    string
		delayed bool
		want    uint32
	}{
		{"immediate branches", false, TextBase + 4},
		{"delayed branches", true, TextBase + 8},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := newTestContext(ModeFlags{DelayedBranches: tc.delayed})
			e := NewEngine()

			target := (TextBase + 0x40) >> 2
			install(t, ctx, []*Instruction{
				{Op: OpJAL, Target: target},
				{Op: OpADDI, RS: 0, RT: 8, Imm: 1}, // delay slot / fall-through
			})
			ctx.Registers.PC = TextBase

			if _, err := e.Step(ctx); err != nil {
				t.Fatalf("step: %v", err)
			}
			if got := ctx.Registers.GetGPR(31); got != tc.want {
				t.Errorf("$ra = 0x%08X, want 0x%08X", got, tc.want)
			}
			if ctx.Registers.PC != TextBase+0x40 {
				t.Errorf("PC = 0x%08X, want 0x%08X", ctx.Registers.PC, TextBase+0x40)
			}
		})
	}
}

// Division by zero leaves HI/LO unchanged.
func TestDivByZeroLeavesHiLoUnchanged(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()

	ctx.Registers.HI, ctx.Registers.LO = 0x1111, 0x2222
	install(t, ctx, []*Instruction{
		{Op: OpDIV, RS: 8, RT: 9}, // div $t0,$t1 with $t1 == 0
	})
	ctx.Registers.SetGPR(8, 10)
	ctx.Registers.SetGPR(9, 0)
	ctx.Registers.PC = TextBase

	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if ctx.Registers.HI != 0x1111 || ctx.Registers.LO != 0x2222 {
		t.Errorf("HI/LO = 0x%X/0x%X, want unchanged 0x1111/0x2222", ctx.Registers.HI, ctx.Registers.LO)
	}
}

// Register 0 always reads as 0 immediately after Step returns, even if an
// instruction targeted it.
func TestR0AlwaysZero(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()

	install(t, ctx, []*Instruction{
		{Op: OpADDI, RS: 0, RT: 0, Imm: 99}, // addi $zero,$zero,99
	})
	ctx.Registers.PC = TextBase

	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := ctx.Registers.GetGPR(0); got != 0 {
		t.Errorf("$zero = %d, want 0", got)
	}
}

// Breakpoint round-trip: add then delete returns the map to its prior
// state.
func TestBreakpointRoundTrip(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	before := len(ctx.Breakpoints)

	ctx.AddBreakpoint(TextBase)
	if !ctx.HasBreakpoint(TextBase) {
		t.Fatal("breakpoint not recorded after AddBreakpoint")
	}
	if err := ctx.DeleteBreakpoint(TextBase); err != nil {
		t.Fatalf("DeleteBreakpoint: %v", err)
	}
	if len(ctx.Breakpoints) != before {
		t.Errorf("breakpoint map len = %d, want %d (prior state)", len(ctx.Breakpoints), before)
	}
}
