package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// The external reader interface: any thread brackets its reads with
// TryLock/Unlock and then pulls typed views of a context's memory and
// registers. Views are valid only until Unlock — snapshot-while-held, not
// handle-to-live-data. The worker only releases the simulator lock at
// cycle boundaries, so a successful TryLock always observes whole-cycle
// state.

// TryLock attempts to take the simulator lock within timeout, so a slow UI
// thread can back off instead of stalling.
func (s *Scheduler) TryLock(timeout time.Duration) bool {
	return s.acquireSimLockTimeout(timeout) == nil
}

// Unlock releases the simulator lock taken by a successful TryLock.
func (s *Scheduler) Unlock() {
	s.releaseSimLock()
}

// lockedRuntime resolves a context id; the caller must hold the simulator
// lock via TryLock.
func (s *Scheduler) lockedRuntime(id int) (*runtime, error) {
	rt, ok := s.contexts[id]
	if !ok {
		return nil, fmt.Errorf("scheduler: no context %d", id)
	}
	return rt, nil
}

// UserText returns the formatted disassembly of context id's user text
// segment. Caller must hold the lock.
func (s *Scheduler) UserText(id int) ([]string, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return nil, err
	}
	return rt.ctx.Memory.DisassembleText(false), nil
}

// KernelText returns the formatted disassembly of context id's kernel text
// segment. Caller must hold the lock.
func (s *Scheduler) KernelText(id int) ([]string, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return nil, err
	}
	return rt.ctx.Memory.DisassembleText(true), nil
}

// DataView returns context id's user data segment words. Caller must hold
// the lock; the slice is invalid after Unlock.
func (s *Scheduler) DataView(id int) ([]uint32, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return nil, err
	}
	return rt.ctx.Memory.DataWords(), nil
}

// KDataView returns context id's kernel data segment words; see DataView.
func (s *Scheduler) KDataView(id int) ([]uint32, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return nil, err
	}
	return rt.ctx.Memory.KDataWords(), nil
}

// StackView returns context id's mapped stack words (lowest address first)
// and the address of the first word; see DataView.
func (s *Scheduler) StackView(id int) ([]uint32, uint32, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return nil, 0, err
	}
	words, base := rt.ctx.Memory.StackWords()
	return words, base, nil
}

// GPRView returns context id's 32 general-purpose registers. Caller must
// hold the lock.
func (s *Scheduler) GPRView(id int) ([32]uint32, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return [32]uint32{}, err
	}
	return rt.ctx.Registers.GPR, nil
}

// FPSingleView returns the 32 single-precision FPU registers.
func (s *Scheduler) FPSingleView(id int) ([32]uint32, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return [32]uint32{}, err
	}
	return rt.ctx.Registers.FPSingles(), nil
}

// FPDoubleView returns the 16 double-precision FPU registers.
func (s *Scheduler) FPDoubleView(id int) ([16]uint64, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return [16]uint64{}, err
	}
	return rt.ctx.Registers.FPDoubles(), nil
}

// Indices into the SpecialView array.
const (
	SpecialPC = iota
	SpecialEPC
	SpecialCause
	SpecialBadVAddr
	SpecialStatus
	SpecialHI
	SpecialLO
	SpecialFIR
	SpecialFCSR
	specialCount
)

// SpecialView returns the 9-element {PC, EPC, Cause, BadVAddr, Status, HI,
// LO, FIR, FCSR} view of context id.
func (s *Scheduler) SpecialView(id int) ([9]uint32, error) {
	rt, err := s.lockedRuntime(id)
	if err != nil {
		return [9]uint32{}, err
	}
	r := rt.ctx.Registers
	return [specialCount]uint32{
		SpecialPC:       r.PC,
		SpecialEPC:      r.CP0.EPC,
		SpecialCause:    r.CP0.Cause,
		SpecialBadVAddr: r.CP0.BadVAddr,
		SpecialStatus:   r.CP0.Status,
		SpecialHI:       r.HI,
		SpecialLO:       r.LO,
		SpecialFIR:      r.FIR,
		SpecialFCSR:     r.FCSR,
	}, nil
}

// Snapshot is a point-in-time copy of one context's externally interesting
// state, the convenience form for controllers that do not need the full
// typed views.
type Snapshot struct {
	ID       int
	Halted   bool
	PC       uint32
	GPR      [32]uint32
	HI, LO   uint32
	ExitCode int32
	LastErr  string
}

// Snapshot takes the simulator lock itself (bounded by the simulator-lock
// timeout), copies context id's state, and releases the lock. The second
// return value is false if no such context exists or the lock timed out.
func (s *Scheduler) Snapshot(id int) (Snapshot, bool) {
	if err := s.acquireSimLock(); err != nil {
		return Snapshot{}, false
	}
	defer s.releaseSimLock()

	rt, ok := s.contexts[id]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotOf(rt), true
}

// Snapshots returns a copy of every live context's state, ordered by id.
func (s *Scheduler) Snapshots() []Snapshot {
	if err := s.acquireSimLock(); err != nil {
		return nil
	}
	defer s.releaseSimLock()

	ids := make([]int, 0, len(s.contexts))
	for id := range s.contexts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, snapshotOf(s.contexts[id]))
	}
	return out
}

func snapshotOf(rt *runtime) Snapshot {
	r := rt.ctx.Registers
	snap := Snapshot{
		ID:       rt.ctx.ID,
		Halted:   rt.halted,
		PC:       r.PC,
		GPR:      r.GPR,
		HI:       r.HI,
		LO:       r.LO,
		ExitCode: rt.ctx.ExitCode,
	}
	if rt.lastErr != nil {
		snap.LastErr = rt.lastErr.Error()
	}
	return snap
}
