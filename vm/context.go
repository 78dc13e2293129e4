package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Breakpoint is a single address-keyed breakpoint: hitting one halts the
// scheduler before the instruction at that address is retired.
// The container only stores them; the scheduler's cycle loop is what checks
// PC against the map before invoking the engine.
type Breakpoint struct {
	Address          uint32
	SavedInstruction *Instruction // the instruction that was at Address, for display
}

// OutputSink is the write-only capability a per-context stream needs: a
// hosted build forwards to an os.File with a context prefix, an embedded
// build delivers buffered deltas to a host callback on newline or
// buffer-full.
type OutputSink interface {
	io.Writer
	Flush() error
}

// prefixedSink forwards to an underlying writer, buffering until a newline
// or FlushThreshold bytes accumulate, and prefixes each flushed chunk with
// the owning context's id, so multi-context sessions stay readable on a
// shared OS stream.
type prefixedSink struct {
	ctxID  int
	prefix string
	dst    io.Writer
	buf    []byte
}

// FlushThreshold bounds how much unflushed output a sink buffers before it
// is forced out even without a newline.
const FlushThreshold = 4096

func newPrefixedSink(ctxID int, prefix string, dst io.Writer) *prefixedSink {
	return &prefixedSink{ctxID: ctxID, prefix: prefix, dst: dst}
}

func (s *prefixedSink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	for {
		i := indexByte(s.buf, '\n')
		if i < 0 {
			if len(s.buf) >= FlushThreshold {
				if err := s.Flush(); err != nil {
					return 0, err
				}
			}
			break
		}
		line := s.buf[:i+1]
		if _, err := fmt.Fprintf(s.dst, "[%s%d] %s", s.prefix, s.ctxID, line); err != nil {
			return 0, err
		}
		s.buf = s.buf[i+1:]
	}
	return len(p), nil
}

func (s *prefixedSink) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(s.dst, "[%s%d] %s\n", s.prefix, s.ctxID, s.buf)
	s.buf = s.buf[:0]
	return err
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// CallbackSink is the embedded-build output sink: it hands buffered chunks
// to a host callback instead of an os.File, flushing on newline or when
// FlushThreshold is reached.
type CallbackSink struct {
	ctxID    int
	stream   string
	callback func(ctxID int, stream string, chunk []byte)
	buf      []byte
}

// NewCallbackSink builds an embedded-build output sink for one context's
// stdout or stderr stream.
func NewCallbackSink(ctxID int, stream string, callback func(ctxID int, stream string, chunk []byte)) *CallbackSink {
	return &CallbackSink{ctxID: ctxID, stream: stream, callback: callback}
}

func (s *CallbackSink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	for {
		i := indexByte(s.buf, '\n')
		if i < 0 {
			if len(s.buf) >= FlushThreshold {
				s.flushChunk(len(s.buf))
			}
			break
		}
		s.flushChunk(i + 1)
	}
	return len(p), nil
}

func (s *CallbackSink) flushChunk(n int) {
	chunk := make([]byte, n)
	copy(chunk, s.buf[:n])
	s.callback(s.ctxID, s.stream, chunk)
	s.buf = s.buf[n:]
}

func (s *CallbackSink) Flush() error {
	if len(s.buf) > 0 {
		s.flushChunk(len(s.buf))
	}
	return nil
}

// Context is one isolated simulator instance: its own memory image,
// register image, breakpoint table, and I/O streams. Contexts never share
// mutable state; the scheduler is the only thing that observes more than
// one at a time, and only between whole cycles.
type Context struct {
	ID          int
	Memory      *Memory
	Registers   *Registers
	Breakpoints map[uint32]*Breakpoint
	Stdout      OutputSink
	Stderr      OutputSink
	Stdin       io.Reader

	Mode  ModeFlags
	State StepResult

	ExitCode int32
	Exited   bool

	stdinBuf *bufio.Reader
}

// stdinReader lazily wraps Stdin in a buffered reader so repeated read
// syscalls (read_int, read_string, ...) share one input cursor instead of
// dropping bytes buffered-then-discarded between calls.
func (c *Context) stdinReader() *bufio.Reader {
	if c.stdinBuf == nil {
		if c.Stdin == nil {
			c.stdinBuf = bufio.NewReader(new(noInput))
		} else {
			c.stdinBuf = bufio.NewReader(c.Stdin)
		}
	}
	return c.stdinBuf
}

// noInput is an io.Reader that always reports EOF, used when a Context has
// no Stdin wired up (NewEmbeddedContext leaves Stdin nil).
type noInput struct{}

func (*noInput) Read([]byte) (int, error) { return 0, io.EOF }

// ModeFlags is the immutable, startup-configured record of global mode
// flags: delayed branches, delayed loads, bare machine,
// accept-pseudo-instructions, and endian. It is never mutated after a
// Context is constructed.
type ModeFlags struct {
	DelayedBranches   bool
	DelayedLoads      bool
	BareMachine       bool
	AcceptPseudoInsts bool
	BigEndian         bool
}

// NewContext builds a fresh, isolated Context with hosted-build stdout and
// stderr sinks (os.Stdout/os.Stderr with a context-id prefix).
func NewContext(id int, mode ModeFlags, dataLimit, kdataLimit, stackLimit uint32) *Context {
	return &Context{
		ID:          id,
		Memory:      NewMemory(dataLimit, kdataLimit, stackLimit, mode.BigEndian),
		Registers:   NewRegisters(),
		Breakpoints: make(map[uint32]*Breakpoint),
		Stdout:      newPrefixedSink(id, "ctx", os.Stdout),
		Stderr:      newPrefixedSink(id, "ctx", os.Stderr),
		Stdin:       os.Stdin,
		Mode:        mode,
	}
}

// NewEmbeddedContext builds a Context whose stdout/stderr forward to a host
// callback instead of process streams, for embedded builds.
func NewEmbeddedContext(id int, mode ModeFlags, dataLimit, kdataLimit, stackLimit uint32, callback func(ctxID int, stream string, chunk []byte)) *Context {
	return &Context{
		ID:          id,
		Memory:      NewMemory(dataLimit, kdataLimit, stackLimit, mode.BigEndian),
		Registers:   NewRegisters(),
		Breakpoints: make(map[uint32]*Breakpoint),
		Stdout:      NewCallbackSink(id, "stdout", callback),
		Stderr:      NewCallbackSink(id, "stderr", callback),
		Mode:        mode,
	}
}

// AddBreakpoint inserts a breakpoint at address. Inserting at an existing
// address is a no-op success.
func (c *Context) AddBreakpoint(address uint32) {
	if _, exists := c.Breakpoints[address]; exists {
		return
	}
	c.Breakpoints[address] = &Breakpoint{Address: address, SavedInstruction: c.Memory.PeekInst(address)}
}

// DeleteBreakpoint removes a breakpoint by address. Removing a missing one
// is a soft, user-visible error rather than a panic.
func (c *Context) DeleteBreakpoint(address uint32) error {
	if _, exists := c.Breakpoints[address]; !exists {
		return fmt.Errorf("ctx%d: no breakpoint at 0x%08X", c.ID, address)
	}
	delete(c.Breakpoints, address)
	return nil
}

// HasBreakpoint reports whether address has a breakpoint.
func (c *Context) HasBreakpoint(address uint32) bool {
	_, ok := c.Breakpoints[address]
	return ok
}

// flushStreams flushes both output sinks, skipping any that is nil.
func (c *Context) flushStreams() {
	if c.Stdout != nil {
		_ = c.Stdout.Flush()
	}
	if c.Stderr != nil {
		_ = c.Stderr.Flush()
	}
}

// reportf writes a formatted, context-prefixed message to stderr without
// halting execution — the user-visible, non-fatal error class (unknown
// syscalls, breakpoint housekeeping).
func (c *Context) reportf(format string, args ...interface{}) {
	fmt.Fprintf(c.Stderr, format+"\n", args...)
}
