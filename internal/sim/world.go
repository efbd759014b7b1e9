// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"time"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/sau"
)

// SetNonSecureStack implements cmse.Core.SetNonSecureStack.
func (m *Machine) SetNonSecureStack(sp uint32) {
	m.Lock()
	defer m.Unlock()

	m.mspNS = sp
	m.record("msp_ns", 0, sp)
}

// target resolves the Non-secure function reached by a BXNS/BLXNS.
func (m *Machine) target(addr uint32) (f *Func, err fault) {
	pc := cmse.InstructionAddress(addr)

	if !m.secure {
		return nil, faultUndefined
	}

	if m.attribution(pc) != sau.NonSecure {
		return nil, faultInvalidEntry
	}

	if f = m.function(pc); f == nil || f.Secure {
		return nil, faultUndefined
	}

	return
}

// BranchNonSecure implements cmse.Core.BranchNonSecure, it runs the
// Non-secure function found at entry until it returns, which ends Run.
func (m *Machine) BranchNonSecure(entry uint32) {
	m.Lock()
	m.record("bxns", entry, m.mspNS)

	f, err := m.target(entry)

	if err != faultNone {
		m.Unlock()
		m.raise(err, entry)
		return
	}

	m.secure = false
	m.pc = f.Addr
	r0 := m.regs[0]
	m.Unlock()

	// exceptions pending since boot can preempt from now on
	m.deliver()

	f.Fn(r0)

	panic(exitSignal{})
}

// CallNonSecure implements cmse.Core.CallNonSecure.
func (m *Machine) CallNonSecure(target uint32) {
	m.Lock()
	m.record("blxns", target, 0)

	f, err := m.target(target)

	if err != faultNone {
		m.Unlock()
		m.raise(err, target)
		return
	}

	pc := m.pc
	lr := m.lr

	m.lr = pc | cmse.ThumbBit
	m.secure = false
	m.pc = f.Addr
	r0 := m.regs[0]
	m.Unlock()

	f.Fn(r0)

	m.Lock()
	defer m.Unlock()

	m.secure = true
	m.pc = pc
	m.lr = lr
	m.record("ret", target, 0)
}

// CallSecure models a Non-secure call into a Secure entry point. The target
// must lie in Non-secure Callable memory and start with an SG instruction
// (a mapped Secure function), otherwise a SecureFault (INVEP) is raised.
func (m *Machine) CallSecure(addr uint32, r0 uint32) uint32 {
	m.Lock()

	pc := cmse.InstructionAddress(addr)
	secure := m.secure

	if !secure {
		m.record("sg", addr, r0)
	}

	f := m.function(pc)

	switch {
	case !secure && (f == nil || !f.Secure || m.attribution(pc) != sau.NonSecureCallable):
		m.Unlock()
		m.raise(faultInvalidEntry, addr)
		return 0
	case f == nil:
		m.Unlock()
		m.raise(faultUndefined, addr)
		return 0
	}

	prev := m.pc
	m.secure = true
	m.pc = pc
	m.Unlock()

	r0 = f.Fn(r0)

	m.Lock()
	defer m.Unlock()

	m.secure = secure
	m.pc = prev
	m.regs[0] = r0

	return r0
}

// Spin advances the core clock, as a busy loop of the running context would,
// taking any exception which becomes pending.
func (m *Machine) Spin(cycles uint64) {
	for cycles > 0 {
		m.Lock()

		step := cycles

		for _, due := range []func() (uint64, bool){m.syst.due, m.wdog.due} {
			if c, ok := due(); ok && c > m.cycles && c-m.cycles < step {
				step = c - m.cycles
			}
		}

		if m.limit != 0 && m.cycles+step > m.limit {
			m.cycles = m.limit
			m.record("limit", m.pc, 0)
			m.Unlock()
			panic(exitSignal{})
		}

		m.cycles += step
		cycles -= step

		m.syst.expire(m, m.cycles)
		m.wdog.expire(m, m.cycles)
		m.Unlock()

		m.deliver()
	}
}

// Sleep advances the core clock by the given duration.
func (m *Machine) Sleep(d time.Duration) {
	m.Spin(uint64(d) * m.Frequency / uint64(time.Second))
}
