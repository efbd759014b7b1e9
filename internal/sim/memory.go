// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/GoTEE-cmse/sau"
)

// Private Peripheral Bus, exempt from security attribution.
const (
	ppbStart = 0xe0000000
	ppbEnd   = 0xe00fffff
)

func ppb(addr uint32) bool {
	return addr >= ppbStart && addr <= ppbEnd
}

// Peek reads memory bypassing security checks and the trace, it is meant for
// debugging tools.
func (m *Machine) Peek(addr uint32) uint32 {
	m.Lock()
	defer m.Unlock()

	return m.words[addr&^3]
}

// Poke writes memory bypassing security checks and the trace, it is meant
// for image loading and debugging tools.
func (m *Machine) Poke(addr uint32, val uint32) {
	m.Lock()
	defer m.Unlock()

	m.words[addr&^3] = val
}

// access validates a data access in the current security state, a non-zero
// fault kind is returned on violation.
func (m *Machine) access(addr uint32) (f fault) {
	if addr&3 != 0 {
		return faultUnaligned
	}

	if m.secure || ppb(addr) {
		return
	}

	if m.attribution(addr) != sau.NonSecure {
		return faultAUViolation
	}

	return
}

// Load implements cmse.Core.Load.
func (m *Machine) Load(addr uint32) (val uint32) {
	m.Lock()

	if f := m.access(addr); f != faultNone {
		m.Unlock()
		m.raise(f, addr)
		return 0
	}

	switch {
	case ppb(addr) && !m.secure:
		// Non-secure view of the System Control Space is not emulated
		val = 0
	case ppb(addr):
		val = m.readSCS(addr)
	case m.wdog.decode(addr):
		val = m.wdog.read(m, addr)
	default:
		val = m.words[addr]
	}

	m.Unlock()

	return
}

// Store implements cmse.Core.Store.
func (m *Machine) Store(addr uint32, val uint32) {
	m.Lock()

	if f := m.access(addr); f != faultNone {
		m.Unlock()
		m.raise(f, addr)
		return
	}

	m.record("store", addr, val)

	switch {
	case ppb(addr) && !m.secure:
	case ppb(addr):
		m.writeSCS(addr, val)
	case m.wdog.decode(addr):
		m.wdog.write(m, addr, val)
	default:
		m.words[addr] = val
	}

	m.Unlock()

	// register writes can unmask pending exceptions
	if ppb(addr) || m.wdog.decode(addr) {
		m.deliver()
	}
}

// LoadImage copies words at consecutive addresses starting at base, bypassing
// security checks.
func (m *Machine) LoadImage(base uint32, words ...uint32) {
	m.Lock()
	defer m.Unlock()

	for i, w := range words {
		m.words[base+uint32(i*4)] = w
	}
}
