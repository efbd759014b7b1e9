// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/GoTEE-cmse/cmse"
)

// SysTick CSR fields
const (
	systEnable    = 1 << 0
	systTickInt   = 1 << 1
	systClkSource = 1 << 2
	systCountFlag = 1 << 16

	systMask = 0x00ffffff
)

type systick struct {
	csr       uint32
	rvr       uint32
	cvr       uint32
	countflag bool
	// cycle at which the counter next wraps
	next uint64
}

func (t *systick) enabled() bool {
	return t.csr&systEnable != 0
}

func (t *systick) current(cycles uint64) uint32 {
	if !t.enabled() {
		return t.cvr
	}

	return uint32(t.next-cycles-1) & systMask
}

func (t *systick) read(m *Machine, addr uint32) (val uint32) {
	switch addr {
	case cmse.SYST_CSR:
		val = t.csr

		if t.countflag {
			val |= systCountFlag
			t.countflag = false
		}
	case cmse.SYST_RVR:
		val = t.rvr
	case cmse.SYST_CVR:
		val = t.current(m.cycles)
	}

	return
}

func (t *systick) write(m *Machine, addr uint32, val uint32) {
	switch addr {
	case cmse.SYST_CSR:
		wasEnabled := t.enabled()

		if wasEnabled {
			t.cvr = t.current(m.cycles)
		}

		t.csr = val & (systEnable | systTickInt | systClkSource)

		if !wasEnabled && t.enabled() {
			load := t.cvr

			if load == 0 {
				load = t.rvr
			}

			t.next = m.cycles + uint64(load) + 1
		}
	case cmse.SYST_RVR:
		t.rvr = val & systMask
	case cmse.SYST_CVR:
		t.cvr = 0
		t.countflag = false

		if t.enabled() {
			t.next = m.cycles + uint64(t.rvr) + 1
		}
	}
}

// due returns the cycle of the next counter wrap, if any.
func (t *systick) due() (cycle uint64, ok bool) {
	if !t.enabled() || t.rvr == 0 {
		return
	}

	return t.next, true
}

// expire processes counter wraps up to the given cycle.
func (t *systick) expire(m *Machine, cycles uint64) {
	period := uint64(t.rvr) + 1

	for t.enabled() && t.rvr != 0 && cycles >= t.next {
		t.countflag = true
		t.next += period

		if t.csr&systTickInt != 0 {
			m.pend[cmse.SYS_TICK] = true
		}
	}
}
