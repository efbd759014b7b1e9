// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package callgate implements the Secure World side of calls into Non-secure
// functions.
//
// On each trigger the gate reads a candidate function address from a mailbox
// written by the Non-secure World, validates it against the approved call
// window and only then branches to it with BLXNS. Addresses are callable only
// through the Target type, whose values are produced exclusively by
// Gate.Validate and are checked again against the gate window on Invoke.
package callgate

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/mem"
)

// ErrOutsideWindow is returned for call targets which fall outside the
// approved window.
var ErrOutsideWindow = errors.New("call target outside of approved window")

// State represents the gate state.
type State int32

const (
	Idle State = iota
	Triggered
	Validating
	Invoking
	Returned
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Triggered:
		return "triggered"
	case Validating:
		return "validating"
	case Invoking:
		return "invoking"
	case Returned:
		return "returned"
	case Rejected:
		return "rejected"
	default:
		return "?"
	}
}

// Target represents a validated Non-secure function address, the zero value
// is not callable.
type Target struct {
	addr  uint32
	valid bool
}

// Addr returns the target function address, with the Thumb bit set.
func (t Target) Addr() uint32 {
	return cmse.FunctionAddress(t.addr)
}

// Watchdog represents a timer bounding the duration of Non-secure calls.
type Watchdog interface {
	Arm()
	Disarm()
}

// Gate represents a Non-secure call gate instance.
type Gate struct {
	// Core performs the security state transitions
	Core cmse.Core
	// Window is the approved call target range
	Window mem.Window
	// Mailbox is the address of the Non-secure written target
	Mailbox uint32
	// Watchdog, when set, is armed for the duration of each call
	Watchdog Watchdog
	// Transition, when set, observes state changes
	Transition func(from State, to State)

	state   atomic.Int32
	calls   atomic.Uint64
	rejects atomic.Uint64
	last    atomic.Uint32
}

// approved returns whether an instruction address may be called, the mailbox
// word is data and is excluded from the window.
func (g *Gate) approved(pc uint32) bool {
	if !g.Window.Contains(pc) {
		return false
	}

	return pc < g.Mailbox || pc-g.Mailbox >= 4
}

// Validate returns a callable target if addr lies within the gate window.
func (g *Gate) Validate(addr uint32) (t Target, err error) {
	pc := cmse.InstructionAddress(addr)

	if !g.approved(pc) {
		return t, fmt.Errorf("%#.8x, window %v mailbox %#.8x: %w", addr, g.Window, g.Mailbox, ErrOutsideWindow)
	}

	return Target{addr: pc, valid: true}, nil
}

func (g *Gate) set(s State) {
	from := State(g.state.Swap(int32(s)))

	if g.Transition != nil {
		g.Transition(from, s)
	}
}

// State returns the current gate state.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// Calls returns the number of completed Non-secure calls.
func (g *Gate) Calls() uint64 {
	return g.calls.Load()
}

// Rejects returns the number of skipped invalid targets.
func (g *Gate) Rejects() uint64 {
	return g.rejects.Load()
}

// Last returns the last candidate address read from the mailbox.
func (g *Gate) Last() uint32 {
	return g.last.Load()
}

// Trigger runs one gate cycle: the mailbox value is read and validated, a
// valid target is called and waited for. An invalid target is skipped, the
// returned error is informational and the gate is ready for the next cycle.
func (g *Gate) Trigger() (err error) {
	g.set(Triggered)
	addr := g.Core.Load(g.Mailbox)
	g.last.Store(addr)

	g.set(Validating)
	t, err := g.Validate(addr)

	if err != nil {
		g.rejects.Add(1)
		g.set(Rejected)
		g.set(Idle)
		return
	}

	err = g.Invoke(t)
	g.set(Idle)

	return
}

// Invoke calls a validated target in Non-secure state, returning once it
// returns. Targets validated by a gate with a different window are refused.
func (g *Gate) Invoke(t Target) (err error) {
	if !t.valid {
		return fmt.Errorf("unvalidated target: %w", ErrOutsideWindow)
	}

	if !g.approved(t.addr) {
		return fmt.Errorf("%#.8x, window %v: %w", t.addr, g.Window, ErrOutsideWindow)
	}

	g.set(Invoking)
	g.Core.Barrier()

	if g.Watchdog != nil {
		g.Watchdog.Arm()
	}

	g.Core.CallNonSecure(t.Addr())

	if g.Watchdog != nil {
		g.Watchdog.Disarm()
	}

	g.calls.Add(1)
	g.set(Returned)

	return
}

func (g *Gate) String() string {
	return fmt.Sprintf("gate %v mailbox:%#.8x last:%#.8x calls:%d rejects:%d state:%v",
		g.Window, g.Mailbox, g.Last(), g.Calls(), g.Rejects(), g.State())
}
