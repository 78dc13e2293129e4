package vm

import (
	"fmt"
	"math"
)

// SPIM-style syscall numbers, selected by $v0.
const (
	sysPrintInt    = 1
	sysPrintFloat  = 2
	sysPrintDouble = 3
	sysPrintString = 4
	sysReadInt     = 5
	sysReadFloat   = 6
	sysReadDouble  = 7
	sysReadString  = 8
	sysSbrk        = 9
	sysExit        = 10
	sysPrintChar   = 11
	sysReadChar    = 12
	sysOpen        = 13
	sysRead        = 14
	sysWrite       = 15
	sysClose       = 16
	sysExit2       = 17
	sysPrintHex    = 34
)

// exitSignal is how sysExit/sysExit2 unwind out of dispatch and back to
// runOne without being mistaken for a real execution fault; runOne converts
// it into a normal halted outcome.
type exitSignal struct {
	code int32
}

func (e *exitSignal) Error() string { return "exit" }

// dispatchSyscall runs the syscall named by $v0 directly. The same
// syscall table and ABI apply whether or not BareMachine is set; this
// implementation never installs a second, OS-mediated convention.
func (e *Engine) dispatchSyscall(c *Context) error {
	r := c.Registers
	switch r.GetGPR(2) {
	case sysPrintInt:
		fmt.Fprintf(c.Stdout, "%d", int32(r.GetGPR(4)))
	case sysPrintFloat:
		fmt.Fprintf(c.Stdout, "%g", math.Float32frombits(r.GetFPSingle(12)))
	case sysPrintDouble:
		fmt.Fprintf(c.Stdout, "%g", math.Float64frombits(r.GetFPDouble(12)))
	case sysPrintString:
		s, err := readCString(c.Memory, r.GetGPR(4))
		if err != nil {
			return e.memFault(c, err)
		}
		fmt.Fprint(c.Stdout, s)
	case sysPrintChar:
		fmt.Fprintf(c.Stdout, "%c", byte(r.GetGPR(4)))
	case sysPrintHex:
		fmt.Fprintf(c.Stdout, "0x%08x", r.GetGPR(4))

	case sysReadInt:
		var v int32
		fmt.Fscan(c.stdinReader(), &v)
		r.SetGPR(2, uint32(v))
	case sysReadFloat:
		var v float32
		fmt.Fscan(c.stdinReader(), &v)
		r.SetFPSingle(0, math.Float32bits(v))
	case sysReadDouble:
		var v float64
		fmt.Fscan(c.stdinReader(), &v)
		r.SetFPDouble(0, math.Float64bits(v))
	case sysReadChar:
		b, err := c.stdinReader().ReadByte()
		if err != nil {
			r.SetGPR(2, 0)
		} else {
			r.SetGPR(2, uint32(b))
		}
	case sysReadString:
		return e.sysReadString(c)

	case sysSbrk:
		return e.sysSbrk(c)

	case sysExit:
		c.ExitCode = 0
		return &exitSignal{code: 0}
	case sysExit2:
		code := int32(r.GetGPR(4))
		c.ExitCode = code
		return &exitSignal{code: code}

	case sysOpen, sysClose:
		// No real filesystem is exposed to guest programs; report failure
		// rather than silently succeeding.
		r.SetGPR(2, ^uint32(0))
	case sysRead:
		return e.sysRead(c)
	case sysWrite:
		return e.sysWrite(c)

	default:
		c.reportf("unknown syscall number %d", r.GetGPR(2))
	}
	return nil
}

func (e *Engine) sysReadString(c *Context) error {
	r := c.Registers
	addr, maxLen := r.GetGPR(4), r.GetGPR(5)
	if maxLen == 0 {
		return nil
	}
	reader := c.stdinReader()
	var i uint32
	for i < maxLen-1 {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		if err := c.Memory.WriteByte(addr+i, b); err != nil {
			return e.memFault(c, err)
		}
		i++
		if b == '\n' {
			break
		}
	}
	return c.Memory.WriteByte(addr+i, 0)
}

func (e *Engine) sysSbrk(c *Context) error {
	r := c.Registers
	n := r.GetGPR(4)
	oldTop := c.Memory.Data.base + c.Memory.Data.sizeBytes()
	if err := c.Memory.GrowData(n); err != nil {
		return err
	}
	r.SetGPR(2, oldTop)
	return nil
}

func (e *Engine) sysRead(c *Context) error {
	r := c.Registers
	fd, addr, length := r.GetGPR(4), r.GetGPR(5), r.GetGPR(6)
	if fd != 0 {
		r.SetGPR(2, ^uint32(0))
		return nil
	}
	reader := c.stdinReader()
	var i uint32
	for i < length {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		if err := c.Memory.WriteByte(addr+i, b); err != nil {
			return e.memFault(c, err)
		}
		i++
	}
	r.SetGPR(2, i)
	return nil
}

func (e *Engine) sysWrite(c *Context) error {
	r := c.Registers
	fd, addr, length := r.GetGPR(4), r.GetGPR(5), r.GetGPR(6)
	var dst OutputSink
	switch fd {
	case 1:
		dst = c.Stdout
	case 2:
		dst = c.Stderr
	default:
		r.SetGPR(2, ^uint32(0))
		return nil
	}
	buf := make([]byte, length)
	for i := uint32(0); i < length; i++ {
		b, err := c.Memory.ReadByte(addr + i)
		if err != nil {
			return e.memFault(c, err)
		}
		buf[i] = b
	}
	n, err := dst.Write(buf)
	if err != nil {
		return err
	}
	r.SetGPR(2, uint32(n))
	return nil
}

func readCString(m *Memory, addr uint32) (string, error) {
	var out []byte
	for {
		b, err := m.ReadByte(addr)
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		out = append(out, b)
		addr++
	}
	return string(out), nil
}
