// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/GoTEE-cmse/cmse"
)

// WatchdogBase is the address of the emulated Secure CMSDK APB watchdog, its
// interrupt is wired to the NMI.
const WatchdogBase = 0x50081000

// CMSDK APB watchdog registers
const (
	wdogLoad    = 0x000
	wdogValue   = 0x004
	wdogControl = 0x008
	wdogIntClr  = 0x00c
	wdogRIS     = 0x010
	wdogMIS     = 0x014
	wdogLock    = 0xc00

	wdogUnlockKey = 0x1acce551
	wdogSize      = 0x1000

	wdogIntEn = 1 << 0
	wdogResEn = 1 << 1
)

type watchdog struct {
	load    uint32
	control uint32
	ris     bool
	locked  bool
	// cycle at which the counter reaches zero
	next uint64
}

func (w *watchdog) reset() {
	w.load = 0xffffffff
	w.control = 0
	w.ris = false
	w.locked = false
}

func (w *watchdog) decode(addr uint32) bool {
	return addr >= WatchdogBase && addr < WatchdogBase+wdogSize
}

func (w *watchdog) enabled() bool {
	return w.control&wdogIntEn != 0
}

func (w *watchdog) read(m *Machine, addr uint32) (val uint32) {
	switch addr - WatchdogBase {
	case wdogLoad:
		val = w.load
	case wdogValue:
		if w.enabled() && w.next > m.cycles {
			val = uint32(w.next - m.cycles)
		}
	case wdogControl:
		val = w.control
	case wdogRIS:
		if w.ris {
			val = 1
		}
	case wdogMIS:
		if w.ris && w.enabled() {
			val = 1
		}
	case wdogLock:
		if w.locked {
			val = 1
		}
	}

	return
}

func (w *watchdog) write(m *Machine, addr uint32, val uint32) {
	off := addr - WatchdogBase

	if off == wdogLock {
		w.locked = val != wdogUnlockKey
		return
	}

	if w.locked {
		return
	}

	switch off {
	case wdogLoad:
		w.load = val
		w.next = m.cycles + uint64(val)
	case wdogControl:
		if !w.enabled() && val&wdogIntEn != 0 {
			w.next = m.cycles + uint64(w.load)
		}

		w.control = val & (wdogIntEn | wdogResEn)
	case wdogIntClr:
		w.ris = false
		w.next = m.cycles + uint64(w.load)
	}
}

func (w *watchdog) due() (cycle uint64, ok bool) {
	if !w.enabled() || w.ris {
		return
	}

	return w.next, true
}

func (w *watchdog) expire(m *Machine, cycles uint64) {
	if !w.enabled() || w.ris || cycles < w.next {
		return
	}

	w.ris = true
	m.pend[cmse.NMI] = true
}
