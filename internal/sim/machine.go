// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim emulates an ARMv8-M processor with Security Extension at the
// level required to exercise Secure World firmware on a host: word
// addressable memory, SAU attribution with SecureFault on violations, banked
// System Control Space registers, SysTick, a CMSDK watchdog and exception
// entry with stacked frames.
//
// Program code is not interpreted: Secure and Non-secure functions are Go
// closures mapped at fixed addresses, branches and calls across security
// states look them up and run them in the target state.
package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/sau"
)

// DefaultFrequency is the emulated core clock (64 MHz).
const DefaultFrequency = 64000000

var (
	// ErrHalted is returned by Run when the firmware halted the core.
	ErrHalted = errors.New("core halted")
	// ErrLockup is returned by Run when an unrecoverable exception was
	// not handled.
	ErrLockup = errors.New("core lockup")
)

type haltSignal struct{}
type lockupSignal struct{}
type exitSignal struct{}

// Machine represents an emulated ARMv8-M core.
type Machine struct {
	sync.Mutex

	// Frequency is the core clock in Hz
	Frequency uint64
	// Output receives diagnostic characters, secure reports their
	// originating security state.
	Output func(c byte, secure bool)

	words map[uint32]uint32
	funcs *btree.BTreeG[*Func]
	trace []Event

	cycles  uint64
	secure  bool
	primask uint32
	pc      uint32
	regs    [13]uint32
	lr      uint32

	msp   uint32
	mspNS uint32

	vector func(n int, frame uint32)
	active []int

	// pending exceptions
	pend map[int]bool

	scs   scs
	syst  systick
	wdog  watchdog
	units []sau.Region

	halted  bool
	running bool

	// core state when Run last returned
	stop Registers

	// cycle count at which Run returns, 0 for none
	limit uint64
}

// Event represents a trace record of an architecturally visible operation.
type Event struct {
	Cycle  uint64
	Kind   string
	Addr   uint32
	Val    uint32
	Secure bool
}

func (e Event) String() string {
	state := "NS"

	if e.Secure {
		state = "S"
	}

	return fmt.Sprintf("%10d %-2s %-9s addr:%#.8x val:%#.8x", e.Cycle, state, e.Kind, e.Addr, e.Val)
}

// New returns a machine in Secure state, as out of reset, with the Secure
// stack at the end of Secure SRAM.
func New() *Machine {
	m := &Machine{
		Frequency: DefaultFrequency,
		words:     make(map[uint32]uint32),
		funcs:     btree.NewG[*Func](8, lessFunc),
		pend:      make(map[int]bool),
		secure:    true,
		msp:       mem.SecureRAMStart + mem.SecureRAMSize,
	}

	m.scs.sauRegions = sau.MaxRegions
	m.wdog.reset()

	return m
}

// SetVector installs the Secure exception dispatch function, the frame
// argument points to the stacked exception frame.
func (m *Machine) SetVector(fn func(n int, frame uint32)) {
	m.Lock()
	defer m.Unlock()

	m.vector = fn
}

// Run executes the boot function in Secure state and returns once the
// emulated firmware halts, locks up or the Non-secure image returns. On
// return the core is left in Secure state, as a debugger halt would, so
// that its registers can be inspected.
func (m *Machine) Run(boot func()) (err error) {
	m.Lock()
	m.running = true
	m.Unlock()

	defer func() {
		r := recover()

		m.Lock()
		m.stop = m.registers()
		m.running = false
		m.active = nil
		m.secure = true
		m.Unlock()

		switch r.(type) {
		case nil:
		case haltSignal:
			err = ErrHalted
		case lockupSignal:
			err = ErrLockup
		case exitSignal:
			err = nil
		default:
			panic(r)
		}
	}()

	boot()

	return
}

// RunFor executes Run with the emulated time limited to d, reaching the limit
// is not an error.
func (m *Machine) RunFor(d time.Duration, boot func()) (err error) {
	m.Lock()
	m.limit = m.cycles + uint64(d)*m.Frequency/uint64(time.Second)
	m.Unlock()

	defer func() {
		m.Lock()
		m.limit = 0
		m.Unlock()
	}()

	return m.Run(boot)
}

// Halted returns whether the core was halted.
func (m *Machine) Halted() bool {
	m.Lock()
	defer m.Unlock()

	return m.halted
}

// Secure returns whether the core is in Secure state.
func (m *Machine) Secure() bool {
	m.Lock()
	defer m.Unlock()

	return m.secure
}

// Cycles returns the number of elapsed core cycles.
func (m *Machine) Cycles() uint64 {
	m.Lock()
	defer m.Unlock()

	return m.cycles
}

// Elapsed returns the emulated time since reset.
func (m *Machine) Elapsed() time.Duration {
	m.Lock()
	defer m.Unlock()

	return m.duration(m.cycles)
}

func (m *Machine) duration(cycles uint64) time.Duration {
	return time.Duration(cycles * uint64(time.Second) / m.Frequency)
}

// Trace returns a copy of the recorded events.
func (m *Machine) Trace() []Event {
	m.Lock()
	defer m.Unlock()

	t := make([]Event, len(m.trace))
	copy(t, m.trace)

	return t
}

// Events returns the recorded events of a given kind.
func (m *Machine) Events(kind string) (events []Event) {
	m.Lock()
	defer m.Unlock()

	for _, e := range m.trace {
		if e.Kind == kind {
			events = append(events, e)
		}
	}

	return
}

func (m *Machine) record(kind string, addr uint32, val uint32) {
	m.trace = append(m.trace, Event{
		Cycle:  m.cycles,
		Kind:   kind,
		Addr:   addr,
		Val:    val,
		Secure: m.secure,
	})
}

// Registers represents the core state visible to a debugger.
type Registers struct {
	Secure  bool
	PC      uint32
	LR      uint32
	MSP     uint32
	MSPNS   uint32
	PRIMASK uint32
	// Active lists the exceptions being handled, innermost last
	Active []int
	// Pending lists the exceptions waiting to be taken
	Pending []int
}

func (r Registers) String() string {
	state := "NS"

	if r.Secure {
		state = "S"
	}

	var active, pending []string

	for _, n := range r.Active {
		active = append(active, cmse.ExceptionName(n))
	}

	for _, n := range r.Pending {
		pending = append(pending, cmse.ExceptionName(n))
	}

	return fmt.Sprintf("state:%s pc:%#.8x lr:%#.8x msp:%#.8x msp_ns:%#.8x primask:%d active:%v pending:%v",
		state, r.PC, r.LR, r.MSP, r.MSPNS, r.PRIMASK, active, pending)
}

func (m *Machine) registers() (r Registers) {
	r = Registers{
		Secure:  m.secure,
		PC:      m.pc,
		LR:      m.lr,
		MSP:     m.msp,
		MSPNS:   m.mspNS,
		PRIMASK: m.primask,
		Active:  append([]int(nil), m.active...),
	}

	for n, p := range m.pend {
		if p {
			r.Pending = append(r.Pending, n)
		}
	}

	sort.Ints(r.Pending)

	return
}

// Stopped returns the core state at the time Run last returned.
func (m *Machine) Stopped() Registers {
	m.Lock()
	defer m.Unlock()

	return m.stop
}

// SetRegister sets a general purpose register (r0-r12) of the running
// context, it is used by emulated code to model register state captured on
// exception entry.
func (m *Machine) SetRegister(n int, val uint32) {
	m.Lock()
	defer m.Unlock()

	m.regs[n] = val
}

// NonSecureStack returns the Non-secure main stack pointer.
func (m *Machine) NonSecureStack() uint32 {
	m.Lock()
	defer m.Unlock()

	return m.mspNS
}

// Attribution returns the security attribute of an address according to
// the SAU state.
func (m *Machine) Attribution(addr uint32) sau.Attribute {
	m.Lock()
	defer m.Unlock()

	return m.attribution(addr)
}

func (m *Machine) attribution(addr uint32) sau.Attribute {
	if m.scs.sauCtrl&(1<<sau.CTRL_ENABLE) == 0 {
		if m.scs.sauCtrl&(1<<sau.CTRL_ALLNS) != 0 {
			return sau.NonSecure
		}

		return sau.Secure
	}

	attr, _ := sau.Attribution(m.units, addr)

	return attr
}

// Write emits a character on the diagnostic channel of the current security
// state.
func (m *Machine) Write(p []byte) (int, error) {
	m.Lock()
	out := m.Output
	secure := m.secure
	m.Unlock()

	if out == nil {
		return len(p), nil
	}

	for _, c := range p {
		out(c, secure)
	}

	return len(p), nil
}

func (m *Machine) halt() {
	m.Lock()
	m.halted = true
	m.record("halt", m.pc, 0)
	m.Unlock()

	panic(haltSignal{})
}

// Halt implements cmse.Core.Halt.
func (m *Machine) Halt() {
	m.halt()
}

// DisableInterrupts implements cmse.Core.DisableInterrupts.
func (m *Machine) DisableInterrupts() (primask uint32) {
	m.Lock()
	defer m.Unlock()

	primask = m.primask
	m.primask = 1
	m.record("cpsid", 0, primask)

	return
}

// RestoreInterrupts implements cmse.Core.RestoreInterrupts.
func (m *Machine) RestoreInterrupts(primask uint32) {
	m.Lock()
	m.primask = primask & 1
	m.record("primask", 0, m.primask)
	m.Unlock()

	m.deliver()
}

// Barrier implements cmse.Core.Barrier.
func (m *Machine) Barrier() {
	m.Lock()
	defer m.Unlock()

	m.record("barrier", 0, 0)
}

var _ cmse.Core = (*Machine)(nil)
