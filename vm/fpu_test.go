package vm

import (
	"math"
	"testing"
)

func TestFPUAddSingle(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	r.SetFPSingle(0, math.Float32bits(1.5))
	r.SetFPSingle(1, math.Float32bits(2.25))

	if err := e.execFPU(ctx, &Instruction{Op: OpFPUADD, FPFmt: FmtSingle, FS: 0, FT: 1, FD: 2}); err != nil {
		t.Fatalf("execFPU add: %v", err)
	}
	got := math.Float32frombits(r.GetFPSingle(2))
	if got != 3.75 {
		t.Errorf("$f2 = %v, want 3.75", got)
	}
}

func TestFPUDoubleDivide(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	r.SetFPDouble(0, math.Float64bits(9.0))
	r.SetFPDouble(2, math.Float64bits(2.0))

	if err := e.execFPU(ctx, &Instruction{Op: OpFPUDIV, FPFmt: FmtDouble, FS: 0, FT: 2, FD: 4}); err != nil {
		t.Fatalf("execFPU div: %v", err)
	}
	got := math.Float64frombits(r.GetFPDouble(4))
	if got != 4.5 {
		t.Errorf("$f4 (double) = %v, want 4.5", got)
	}
}

// A signaling compare (C.LT, predicate IN|LT) against a NaN operand latches
// FPE, which the engine vectors at the end of the cycle.
func TestFPUCompareNaNSignalingRaisesFPE(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	r.SetFPSingle(0, math.Float32bits(float32(math.NaN())))
	r.SetFPSingle(1, math.Float32bits(1.0))

	// C.LT.S $f0,$f1 -- predicate 0xC = IN|LT.
	if err := e.execFPU(ctx, &Instruction{Op: OpFPUCOMPARE, FPFmt: FmtSingle, FS: 0, FT: 1, Shamt: fpCondIN | fpCondLT}); err != nil {
		t.Fatalf("execFPU compare: %v", err)
	}
	if !r.ExceptionOccurred || e.pendingCode != ExcFPE {
		t.Errorf("latched exception = (%v, %d), want (true, ExcFPE %d)", r.ExceptionOccurred, e.pendingCode, ExcFPE)
	}
}

// Quiet predicates against a NaN operand never fault: OLT reports false,
// UN reports true.
func TestFPUCompareNaNQuietPredicates(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	r.SetFPSingle(0, math.Float32bits(float32(math.NaN())))
	r.SetFPSingle(1, math.Float32bits(1.0))

	r.SetFCC(0, true)
	if err := e.execFPU(ctx, &Instruction{Op: OpFPUCOMPARE, FPFmt: FmtSingle, FS: 0, FT: 1, Shamt: fpCondLT}); err != nil {
		t.Fatalf("execFPU OLT compare: %v", err)
	}
	if r.FCC(0) {
		t.Error("FCC(0) = true, want false after a quiet OLT compare against NaN")
	}

	if err := e.execFPU(ctx, &Instruction{Op: OpFPUCOMPARE, FPFmt: FmtSingle, FS: 0, FT: 1, Shamt: fpCondUN}); err != nil {
		t.Fatalf("execFPU UN compare: %v", err)
	}
	if !r.FCC(0) {
		t.Error("FCC(0) = false, want true for UN predicate against NaN")
	}
	if r.ExceptionOccurred {
		t.Error("ExceptionOccurred set, want clear for quiet predicates")
	}
}

// MOVT/MOVF only move when the condition code matches the opcode's sense.
func TestMovtMovfConditionalMove(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	r.SetFCC(0, true)
	r.SetGPR(8, 0xAAAA)
	r.SetGPR(9, 0xBBBB)

	if err := e.execFPU(ctx, &Instruction{Op: OpMOVT, RS: 8, RD: 10, CC: 0}); err != nil {
		t.Fatalf("MOVT: %v", err)
	}
	if got := r.GetGPR(10); got != 0xAAAA {
		t.Errorf("MOVT with FCC true: $rd = 0x%X, want 0xAAAA", got)
	}

	r.SetGPR(11, 0x1111)
	if err := e.execFPU(ctx, &Instruction{Op: OpMOVF, RS: 9, RD: 11, CC: 0}); err != nil {
		t.Fatalf("MOVF: %v", err)
	}
	if got := r.GetGPR(11); got != 0x1111 {
		t.Errorf("MOVF with FCC true: $rd = 0x%X, want unchanged 0x1111", got)
	}
}
