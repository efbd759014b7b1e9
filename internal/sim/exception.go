// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/GoTEE-cmse/cmse"
)

type fault int

const (
	faultNone fault = iota
	// UsageFault.UNALIGNED
	faultUnaligned
	// UsageFault.UNDEFINSTR, nothing is mapped at the target
	faultUndefined
	// SecureFault.AUVIOL
	faultAUViolation
	// SecureFault.INVEP
	faultInvalidEntry
	// SecureFault.INVTRAN
	faultInvalidTransition
)

// FrameSize is the size of the basic exception frame (r0-r3, r12, lr, pc,
// xpsr).
const FrameSize = 8 * 4

const xpsrThumb = 1 << 24

func (f fault) secure() bool {
	return f >= faultAUViolation
}

func (f fault) status() int {
	switch f {
	case faultUnaligned:
		return CFSR_UNALIGNED
	case faultUndefined:
		return CFSR_UNDEFINSTR
	case faultAUViolation:
		return SFSR_AUVIOL
	case faultInvalidEntry:
		return SFSR_INVEP
	case faultInvalidTransition:
		return SFSR_INVTRAN
	}

	return 0
}

func (m *Machine) isActive(n int) bool {
	for _, a := range m.active {
		if a == n {
			return true
		}
	}

	return false
}

// raise records the fault status and takes the synchronous exception, fault
// handlers are not allowed to return.
func (m *Machine) raise(f fault, addr uint32) {
	m.Lock()

	if m.isActive(cmse.HARD_FAULT) || m.isActive(cmse.NMI) || m.isActive(cmse.SECURE_FAULT) || m.isActive(cmse.USAGE_FAULT) {
		m.record("lockup", addr, uint32(f))
		m.Unlock()
		panic(lockupSignal{})
	}

	n := cmse.HARD_FAULT

	if f.secure() {
		m.scs.sfsr |= 1 << f.status()

		if f == faultAUViolation {
			m.scs.sfsr |= 1 << SFSR_SFARVALID
			m.scs.sfar = addr
		}

		if m.scs.shcsr&(1<<cmse.SHCSR_SECUREFAULTENA) != 0 {
			n = cmse.SECURE_FAULT
		}
	} else {
		m.scs.cfsr |= 1 << f.status()

		// UsageFault is banked, the Non-secure image leaves its own disabled
		if m.secure && m.scs.shcsr&(1<<cmse.SHCSR_USGFAULTENA) != 0 {
			n = cmse.USAGE_FAULT
		}
	}

	if n == cmse.HARD_FAULT {
		m.scs.hfsr |= 1 << HFSR_FORCED
	}

	m.record("fault", addr, uint32(n))
	m.Unlock()

	m.exception(n)

	m.Lock()
	m.record("lockup", addr, uint32(n))
	m.Unlock()

	panic(lockupSignal{})
}

// Pend sets an exception pending and takes it if its priority allows,
// exceptions are only taken while the core runs.
func (m *Machine) Pend(n int) {
	m.Lock()
	m.pend[n] = true
	m.Unlock()

	m.deliver()
}

// pending returns the highest priority exception which can preempt the
// current context, if any.
func (m *Machine) pending() int {
	if m.pend[cmse.NMI] && !m.isActive(cmse.NMI) {
		return cmse.NMI
	}

	if m.pend[cmse.SYS_TICK] && m.primask == 0 && len(m.active) == 0 {
		return cmse.SYS_TICK
	}

	return 0
}

func (m *Machine) deliver() {
	for {
		m.Lock()

		if !m.running {
			m.Unlock()
			return
		}

		n := m.pending()

		if n == 0 {
			m.Unlock()
			return
		}

		delete(m.pend, n)
		m.Unlock()

		m.exception(n)
	}
}

// exception stacks the basic frame on the stack of the interrupted security
// state, runs the Secure vector and unstacks on return.
func (m *Machine) exception(n int) {
	m.Lock()

	vector := m.vector

	if vector == nil {
		m.record("lockup", m.pc, uint32(n))
		m.Unlock()
		panic(lockupSignal{})
	}

	secure := m.secure
	sp := &m.msp

	if !secure {
		sp = &m.mspNS
	}

	xpsr := uint32(xpsrThumb)

	if len(m.active) > 0 {
		xpsr |= uint32(m.active[len(m.active)-1])
	}

	*sp -= FrameSize
	frame := *sp

	for i, val := range []uint32{
		m.regs[0], m.regs[1], m.regs[2], m.regs[3],
		m.regs[12], m.lr, m.pc, xpsr,
	} {
		m.words[frame+uint32(i*4)] = val
	}

	pc := m.pc
	m.active = append(m.active, n)
	m.secure = true
	m.record("exception", frame, uint32(n))
	m.Unlock()

	vector(n, frame)

	m.Lock()
	defer m.Unlock()

	m.active = m.active[:len(m.active)-1]
	m.secure = secure
	m.pc = pc

	if !secure {
		m.mspNS += FrameSize
	} else {
		m.msp += FrameSize
	}

	m.record("eret", frame, uint32(n))
}
