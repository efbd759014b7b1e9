// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package systick implements a driver for the Secure instance of the ARMv8-M
// SysTick timer, used as periodic trigger.
package systick

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/GoTEE-cmse/cmse"
)

// SysTick registers fields
const (
	CSR_ENABLE    = 0
	CSR_TICKINT   = 1
	CSR_CLKSOURCE = 2
	CSR_COUNTFLAG = 16

	RVR_RELOAD = 0x00ffffff
)

const (
	// MinReload is the shortest supported period, in core cycles.
	MinReload = 2
	// MaxReload is the longest supported period, in core cycles.
	MaxReload = RVR_RELOAD
)

// ErrReload is returned for periods which do not fit the 24-bit counter.
var ErrReload = errors.New("invalid SysTick reload value")

// SysTick represents the timer instance.
type SysTick struct {
	// Core gives access to the System Control Space
	Core cmse.Core
	// Handler is invoked on each expiry, within the exception context
	Handler func()
	// CountOverruns enables detection of periods elapsed while Handler
	// was running
	CountOverruns bool

	reload   uint32
	ticks    atomic.Uint64
	overruns atomic.Uint64
}

// Configure starts the timer with a period of reload core cycles, with
// interrupt generation enabled.
func (st *SysTick) Configure(reload uint32) (err error) {
	if reload < MinReload || reload > MaxReload {
		return fmt.Errorf("%d, valid range %d-%d: %w", reload, MinReload, MaxReload, ErrReload)
	}

	var csr uint32

	bits.Set(&csr, CSR_ENABLE)
	bits.Set(&csr, CSR_TICKINT)
	bits.Set(&csr, CSR_CLKSOURCE)

	st.Stop()
	st.Core.Store(cmse.SYST_RVR, reload-1)
	// any write clears the current value and COUNTFLAG
	st.Core.Store(cmse.SYST_CVR, 0)
	st.Core.Store(cmse.SYST_CSR, csr)

	st.reload = reload

	return
}

// Stop disables the timer.
func (st *SysTick) Stop() {
	st.Core.Store(cmse.SYST_CSR, 0)
}

// Reload returns the configured period in core cycles.
func (st *SysTick) Reload() uint32 {
	return st.reload
}

// Period returns the configured period for a given core clock.
func (st *SysTick) Period(hz uint64) time.Duration {
	if hz == 0 {
		return 0
	}

	return time.Duration(uint64(st.reload) * uint64(time.Second) / hz)
}

// Handle services the SysTick exception.
func (st *SysTick) Handle() {
	st.ticks.Add(1)

	if st.CountOverruns {
		// clear COUNTFLAG, set by the expiry being serviced
		st.Core.Load(cmse.SYST_CSR)
	}

	if st.Handler != nil {
		st.Handler()
	}

	if st.CountOverruns && st.Core.Load(cmse.SYST_CSR)&(1<<CSR_COUNTFLAG) != 0 {
		st.overruns.Add(1)
	}
}

// Ticks returns the number of serviced expiries.
func (st *SysTick) Ticks() uint64 {
	return st.ticks.Load()
}

// Overruns returns the number of handler invocations which lasted longer
// than a period.
func (st *SysTick) Overruns() uint64 {
	return st.overruns.Load()
}
