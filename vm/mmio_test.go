package vm

import (
	"bytes"
	"testing"
)

func TestConsoleDeviceReceiverReadyAfterFeed(t *testing.T) {
	var out bytes.Buffer
	d := NewConsoleDevice(&out)

	ctrl, err := d.ReadWord(ReceiverControlAddr)
	if err != nil {
		t.Fatalf("ReadWord(control): %v", err)
	}
	if ctrl&mmioReadyBit != 0 {
		t.Error("receiver ready before any input was fed")
	}

	d.Feed('A')
	ctrl, err = d.ReadWord(ReceiverControlAddr)
	if err != nil {
		t.Fatalf("ReadWord(control): %v", err)
	}
	if ctrl&mmioReadyBit == 0 {
		t.Error("receiver not ready after Feed")
	}

	data, err := d.ReadWord(ReceiverDataAddr)
	if err != nil {
		t.Fatalf("ReadWord(data): %v", err)
	}
	if data != uint32('A') {
		t.Errorf("receiver data = %q, want 'A'", data)
	}

	ctrl, _ = d.ReadWord(ReceiverControlAddr)
	if ctrl&mmioReadyBit != 0 {
		t.Error("receiver still ready after the byte was read")
	}
}

func TestConsoleDeviceTransmitWritesOut(t *testing.T) {
	var out bytes.Buffer
	d := NewConsoleDevice(&out)

	if err := d.WriteWord(TransmitterDataAddr, uint32('Z')); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	if got := out.String(); got != "Z" {
		t.Errorf("console output = %q, want %q", got, "Z")
	}
}

func TestConsoleDevicePendingInterruptRequiresEnable(t *testing.T) {
	var out bytes.Buffer
	d := NewConsoleDevice(&out)
	d.Feed('x')

	if d.PendingInterrupt() {
		t.Error("PendingInterrupt true before interrupts were enabled")
	}

	if err := d.WriteWord(ReceiverControlAddr, mmioIntEnableBit); err != nil {
		t.Fatalf("WriteWord(control): %v", err)
	}
	if !d.PendingInterrupt() {
		t.Error("PendingInterrupt false after enabling with data ready")
	}
}

func TestConsoleDeviceUnmappedAddressErrors(t *testing.T) {
	var out bytes.Buffer
	d := NewConsoleDevice(&out)

	if _, err := d.ReadWord(MMIOBase + 0x1000); err == nil {
		t.Error("expected an error reading an unmapped MMIO address")
	}
	if err := d.WriteWord(MMIOBase+0x1000, 0); err == nil {
		t.Error("expected an error writing an unmapped MMIO address")
	}
}

// A pending receiver interrupt vectors the engine to the exception handler
// when Status.IE is set, and is suppressed (but latched in Cause.IP) when
// interrupts are disabled.
func TestConsoleInterruptDelivery(t *testing.T) {
	ctx, _ := newTestContext(ModeFlags{})
	e := NewEngine()
	r := ctx.Registers

	var out bytes.Buffer
	dev := NewConsoleDevice(&out)
	ctx.Memory.MMIO = dev

	install(t, ctx, []*Instruction{
		{Op: OpADDIU, RS: 0, RT: 8, Imm: 1},
		{Op: OpADDIU, RS: 0, RT: 8, Imm: 2},
	})
	ctx.Registers.PC = TextBase

	if err := dev.WriteWord(ReceiverControlAddr, mmioIntEnableBit); err != nil {
		t.Fatalf("enabling receiver interrupts: %v", err)
	}
	dev.Feed('k')

	// Interrupts disabled: the cycle executes normally, but the pending bit
	// shows in Cause.
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step with IE clear: %v", err)
	}
	if r.PC != TextBase+4 {
		t.Errorf("PC = 0x%08X, want sequential advance with IE clear", r.PC)
	}
	if r.CP0.Cause&CauseIPRecv == 0 {
		t.Error("Cause.IP not latched while a character is pending")
	}

	// Interrupts enabled: the next cycle vectors instead of executing.
	r.CP0.Status |= StatusIE
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step with IE set: %v", err)
	}
	if r.PC != ExceptionHandlerAddress {
		t.Errorf("PC = 0x%08X, want the handler 0x%08X", r.PC, ExceptionHandlerAddress)
	}
	if code := (r.CP0.Cause >> 2) & 0x1F; code != ExcInt {
		t.Errorf("ExcCode = %d, want ExcInt (%d)", code, ExcInt)
	}
	if r.CP0.EPC != TextBase+4 {
		t.Errorf("EPC = 0x%08X, want the interrupted instruction 0x%08X", r.CP0.EPC, TextBase+4)
	}

	// Draining the receiver clears the pending bit on the next poll.
	if _, err := dev.ReadWord(ReceiverDataAddr); err != nil {
		t.Fatalf("reading receiver data: %v", err)
	}
	r.CP0.Status &^= StatusEXL // as the guest's handler would via ERET
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("step after drain: %v", err)
	}
	if r.CP0.Cause&CauseIPRecv != 0 {
		t.Error("Cause.IP still set after the receiver was drained")
	}
}

// Memory routes MMIO-window addresses to the installed device.
func TestMemoryRoutesToMMIODevice(t *testing.T) {
	var out bytes.Buffer
	m := NewMemory(DefaultDataLimit, DefaultKDataLimit, DefaultStackLimit, false)
	m.MMIO = NewConsoleDevice(&out)

	if err := m.WriteWord(TransmitterDataAddr, uint32('Q')); err != nil {
		t.Fatalf("WriteWord through Memory: %v", err)
	}
	if got := out.String(); got != "Q" {
		t.Errorf("console output = %q, want %q", got, "Q")
	}
}
