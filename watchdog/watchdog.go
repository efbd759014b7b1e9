// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package watchdog implements a driver for the ARM CMSDK APB watchdog, used
// to bound the duration of calls into the Non-secure World.
//
// The watchdog interrupt is expected to be wired to the NMI, its expiry is
// handled as an unrecoverable exception.
package watchdog

import (
	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/GoTEE-cmse/cmse"
)

// Secure watchdog instance (AN505 memory map)
const Base = 0x50081000

// CMSDK APB watchdog registers
const (
	WDOGLOAD    = 0x000
	WDOGVALUE   = 0x004
	WDOGCONTROL = 0x008
	WDOGINTCLR  = 0x00c
	WDOGRIS     = 0x010
	WDOGMIS     = 0x014
	WDOGLOCK    = 0xc00

	CONTROL_INTEN = 0
	CONTROL_RESEN = 1

	UnlockKey = 0x1acce551
)

// Watchdog represents a watchdog instance.
type Watchdog struct {
	// Core gives access to the peripheral
	Core cmse.Core
	// Base is the peripheral address
	Base uint32
	// Timeout is the expiry interval in watchdog clock cycles
	Timeout uint32
	// Reset enables the reset output on a second expiry
	Reset bool
}

func (w *Watchdog) unlock() {
	w.Core.Store(w.Base+WDOGLOCK, UnlockKey)
}

func (w *Watchdog) lock() {
	w.Core.Store(w.Base+WDOGLOCK, 0)
}

// Arm loads the timeout and enables the interrupt.
func (w *Watchdog) Arm() {
	var ctrl uint32

	bits.Set(&ctrl, CONTROL_INTEN)

	if w.Reset {
		bits.Set(&ctrl, CONTROL_RESEN)
	}

	w.unlock()
	defer w.lock()

	w.Core.Store(w.Base+WDOGLOAD, w.Timeout)
	w.Core.Store(w.Base+WDOGINTCLR, 1)
	w.Core.Store(w.Base+WDOGCONTROL, ctrl)
}

// Disarm stops the counter and clears any pending interrupt.
func (w *Watchdog) Disarm() {
	w.unlock()
	defer w.lock()

	w.Core.Store(w.Base+WDOGCONTROL, 0)
	w.Core.Store(w.Base+WDOGINTCLR, 1)
}

// Expired returns whether the counter reached zero since the last arming.
func (w *Watchdog) Expired() bool {
	return w.Core.Load(w.Base+WDOGRIS)&1 != 0
}

// Value returns the current counter value.
func (w *Watchdog) Value() uint32 {
	return w.Core.Load(w.Base + WDOGVALUE)
}
