package vm

import "io"

// Memory-mapped console device register addresses, the classic SPIM
// layout: a receiver (keyboard) pair and a transmitter (display) pair, each
// control/data.
const (
	ReceiverControlAddr    = MMIOBase + 0x00
	ReceiverDataAddr       = MMIOBase + 0x04
	TransmitterControlAddr = MMIOBase + 0x08
	TransmitterDataAddr    = MMIOBase + 0x0C

	mmioReadyBit     = 1 << 0
	mmioIntEnableBit = 1 << 1
)

// InterruptSource is the optional second capability of an MMIO device:
// the engine polls it at the top of each cycle and vectors an Int
// exception while it reports pending (subject to Status.IE/EXL gating).
type InterruptSource interface {
	PendingInterrupt() bool
}

// ConsoleDevice implements MMIODevice as a single-character-at-a-time
// keyboard/display pair. Input is queued by
// whatever drives the simulator (the scheduler's external reader, a test, an
// embedded host) calling Feed; output goes to Out.
type ConsoleDevice struct {
	Out io.Writer

	receiverIntEnable    bool
	transmitterIntEnable bool

	queue      []byte
	dataByte   byte
	dataReady  bool
}

// NewConsoleDevice returns a ConsoleDevice writing to out. The transmitter
// is always ready in this model: output is synchronous.
func NewConsoleDevice(out io.Writer) *ConsoleDevice {
	return &ConsoleDevice{Out: out}
}

// Feed enqueues one input character, to become visible through
// ReceiverDataAddr once the receiver's ready bit is observed set.
func (d *ConsoleDevice) Feed(b byte) {
	d.queue = append(d.queue, b)
	if !d.dataReady {
		d.pump()
	}
}

func (d *ConsoleDevice) pump() {
	if d.dataReady || len(d.queue) == 0 {
		return
	}
	d.dataByte = d.queue[0]
	d.queue = d.queue[1:]
	d.dataReady = true
}

// PendingInterrupt reports whether the receiver has a character ready and
// interrupts are enabled for it, for the engine's per-cycle interrupt poll.
func (d *ConsoleDevice) PendingInterrupt() bool {
	return d.dataReady && d.receiverIntEnable
}

func (d *ConsoleDevice) ReadWord(addr uint32) (uint32, error) {
	switch addr {
	case ReceiverControlAddr:
		v := uint32(0)
		if d.dataReady {
			v |= mmioReadyBit
		}
		if d.receiverIntEnable {
			v |= mmioIntEnableBit
		}
		return v, nil
	case ReceiverDataAddr:
		v := uint32(d.dataByte)
		d.dataReady = false
		d.pump()
		return v, nil
	case TransmitterControlAddr:
		v := uint32(mmioReadyBit) // always ready: writes are synchronous
		if d.transmitterIntEnable {
			v |= mmioIntEnableBit
		}
		return v, nil
	case TransmitterDataAddr:
		return 0, nil
	default:
		return 0, addressError(ExcDBE, addr, "data bus error: unmapped MMIO read")
	}
}

func (d *ConsoleDevice) WriteWord(addr, v uint32) error {
	switch addr {
	case ReceiverControlAddr:
		d.receiverIntEnable = v&mmioIntEnableBit != 0
	case ReceiverDataAddr:
		// Read-only: writes are accepted and ignored.
	case TransmitterControlAddr:
		d.transmitterIntEnable = v&mmioIntEnableBit != 0
	case TransmitterDataAddr:
		if d.Out != nil {
			_, err := d.Out.Write([]byte{byte(v)})
			return err
		}
	default:
		return addressError(ExcDBE, addr, "data bus error: unmapped MMIO write")
	}
	return nil
}
