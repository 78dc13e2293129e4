package vm

import "testing"

func TestCop0RegisterMoveRoundTrip(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	// Count and Compare are fully writable; Status/Cause/Config apply a
	// writable-bit mask, so each case's expectation reflects 0x1234 after
	// that register's mask (registers.go's statusWritableMask et al).
	cases := []struct {
		name string
		reg  int
		want uint32
	}{
		{"Status", 12, 0x1214},
		{"Cause", 13, 0x0200},
		{"EPC", 14, 0x1234},
		{"Count", 9, 0x1234},
		{"Compare", 11, 0x1234},
		{"Config", 16, 0x0004},
	}

	for _, tc := range cases {
		r.SetGPR(8, 0x1234)
		if err := e.execCop0(ctx, &Instruction{Op: OpMTC0, RT: 8, RD: tc.reg}); err != nil {
			t.Fatalf("%s: MTC0: %v", tc.name, err)
		}
		if err := e.execCop0(ctx, &Instruction{Op: OpMFC0, RT: 9, RD: tc.reg}); err != nil {
			t.Fatalf("%s: MFC0: %v", tc.name, err)
		}
		if got := r.GetGPR(9); got != tc.want {
			t.Errorf("%s round trip = 0x%X, want 0x%X", tc.name, got, tc.want)
		}
	}
}

// BadVAddr (CP0 register 8) is read-only: writes to it are dropped.
func TestCop0BadVAddrReadOnly(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	r.CP0.BadVAddr = 0xDEADBEEF
	r.SetGPR(8, 0x1111)
	if err := e.execCop0(ctx, &Instruction{Op: OpMTC0, RT: 8, RD: 8}); err != nil {
		t.Fatalf("MTC0: %v", err)
	}
	if r.CP0.BadVAddr != 0xDEADBEEF {
		t.Errorf("BadVAddr = 0x%X, want unchanged 0xDEADBEEF", r.CP0.BadVAddr)
	}
}

func TestERETClearsExlAndResumesAtEPC(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	r.CP0.Status |= StatusEXL
	r.CP0.EPC = TextBase + 0x40

	target := e.execERET(ctx)
	if target != TextBase+0x40 {
		t.Errorf("ERET target = 0x%X, want 0x%X", target, TextBase+0x40)
	}
	if r.CP0.Status&StatusEXL != 0 {
		t.Error("Status.EXL still set after ERET")
	}
}
