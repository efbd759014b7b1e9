// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package monitor implements the Secure World boot sequence and exception
// dispatch, tying together the security attribution, veneer, call gate,
// periodic trigger, watchdog and fault diagnostics components.
package monitor

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/GoTEE-cmse/callgate"
	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/config"
	"github.com/usbarmory/GoTEE-cmse/fault"
	"github.com/usbarmory/GoTEE-cmse/guest"
	"github.com/usbarmory/GoTEE-cmse/sau"
	"github.com/usbarmory/GoTEE-cmse/systick"
	"github.com/usbarmory/GoTEE-cmse/veneer"
	"github.com/usbarmory/GoTEE-cmse/watchdog"
	"github.com/usbarmory/GoTEE-cmse/worldswitch"
)

// Monitor represents the Secure World instance.
type Monitor struct {
	Core   cmse.Core
	Config *config.Config

	SAU      *sau.SAU
	Veneers  *veneer.Table
	Gate     *callgate.Gate
	SysTick  *systick.SysTick
	Watchdog *watchdog.Watchdog
	Fault    *fault.Handler
	Guests   *guest.Table

	// Output is the Secure diagnostic channel
	Output io.Writer
	// Expose, when set, is called for each veneer registered at boot
	Expose func(e *veneer.Entry)

	// Header is the Non-secure image header, once read
	Header *worldswitch.Header

	launched atomic.Bool
}

// New returns a monitor for the given configuration, out is the Secure
// diagnostic channel. No hardware access takes place.
func New(core cmse.Core, conf *config.Config, out io.Writer) (m *Monitor) {
	m = &Monitor{
		Core:   core,
		Config: conf,
		Output: out,
		Guests: &guest.Table{},
	}

	m.SAU = &sau.SAU{
		Core:    core,
		Veneers: conf.Veneers,
	}

	m.Veneers = veneer.NewTable(conf.Veneers)

	m.Gate = &callgate.Gate{
		Core:    core,
		Window:  conf.Call,
		Mailbox: conf.Mailbox,
	}

	m.SysTick = &systick.SysTick{
		Core:          core,
		Handler:       m.tick,
		CountOverruns: conf.Features.OverrunCount,
	}

	m.Watchdog = &watchdog.Watchdog{
		Core:    core,
		Base:    conf.WatchdogBase,
		Timeout: conf.WatchdogTimeout,
	}

	m.Fault = &fault.Handler{
		Core:   core,
		Output: out,
	}

	if conf.Features.Watchdog {
		m.Gate.Watchdog = m.Watchdog
	}

	return
}

// Launched returns whether the world switch took place.
func (m *Monitor) Launched() bool {
	return m.launched.Load()
}

// harden keeps Secure exceptions prioritized over Non-secure ones, HardFault,
// NMI and BusFault targeting the Secure state and the Secure configurable
// faults enabled, so that they reach diagnostics without escalating.
func (m *Monitor) harden() {
	aircr := m.Core.Load(cmse.SCB_AIRCR) & 0xffff

	bits.Set(&aircr, cmse.AIRCR_PRIS)
	bits.Clear(&aircr, cmse.AIRCR_BFHFNMINS)
	bits.SetN(&aircr, cmse.AIRCR_VECTKEY, 0xffff, cmse.AIRCR_VECTKEY_VAL)

	m.Core.Store(cmse.SCB_AIRCR, aircr)

	shcsr := m.Core.Load(cmse.SCB_SHCSR)
	bits.Set(&shcsr, cmse.SHCSR_SECUREFAULTENA)
	bits.Set(&shcsr, cmse.SHCSR_USGFAULTENA)
	bits.Set(&shcsr, cmse.SHCSR_BUSFAULTENA)
	bits.Set(&shcsr, cmse.SHCSR_MEMFAULTENA)
	m.Core.Store(cmse.SCB_SHCSR, shcsr)

	m.Core.Barrier()
}

// Boot configures the Secure World and transitions into the Non-secure image,
// it returns only on error, before the SAU is enabled when the error is a
// configuration one.
func (m *Monitor) Boot() (err error) {
	conf := m.Config

	if err = conf.Validate(); err != nil {
		return fmt.Errorf("configuration error, %w", err)
	}

	m.harden()

	log.Printf("SM configuring %d SAU regions", len(conf.Regions))

	if err = m.SAU.Configure(conf.Regions); err != nil {
		return fmt.Errorf("configuration error, %w", err)
	}

	h := worldswitch.ReadHeader(m.Core, conf.ImageBase)

	if err = h.Check(conf.RAM, conf.Code); err != nil {
		return fmt.Errorf("invalid Non-secure image, %w", err)
	}

	m.Header = h

	index, err := m.Guests.Add(guest.Guest{
		Name:  "nonsecure",
		Base:  h.Base,
		SP:    h.SP,
		Entry: h.Entry,
	})

	if err != nil {
		return
	}

	if conf.Features.Veneer {
		if err = m.Veneers.Standard(m.Output, m.Guests); err != nil {
			return fmt.Errorf("configuration error, %w", err)
		}

		for _, e := range m.Veneers.Entries() {
			log.Printf("SM exposing %s at %#.8x", e.Name, e.Addr)

			if m.Expose != nil {
				m.Expose(e)
			}
		}
	}

	if conf.Features.CallGate {
		log.Printf("SM starting call gate, window:%v mailbox:%#.8x reload:%d", conf.Call, conf.Mailbox, conf.Reload)

		if err = m.SysTick.Configure(conf.Reload); err != nil {
			return
		}
	}

	if err = m.Guests.SetState(index, guest.Running); err != nil {
		return
	}

	log.Printf("SM launching Non-secure image %v", h)

	m.launched.Store(true)
	worldswitch.Switch(m.Core, h)

	return
}

// Start boots the Secure World, halting on boot errors.
func (m *Monitor) Start() {
	if err := m.Boot(); err != nil {
		log.Printf("SM halting, %v", err)
	}

	m.Core.Halt()
}

func (m *Monitor) tick() {
	// ticks preceding the world switch find no Non-secure World to call
	if !m.launched.Load() {
		return
	}

	// invalid targets are skipped
	_ = m.Gate.Trigger()
}

// Exception dispatches Secure exceptions, frame is the address of the
// stacked exception frame.
func (m *Monitor) Exception(n int, frame uint32) {
	switch n {
	case cmse.SYS_TICK:
		if m.Config.Features.CallGate {
			m.SysTick.Handle()
		}
	case cmse.NMI:
		if m.Config.Features.Watchdog && m.Watchdog.Expired() {
			log.Printf("SM watchdog expired during Non-secure call to %#.8x", m.Gate.Last())
		}

		m.fault(n, frame)
	default:
		m.fault(n, frame)
	}
}

func (m *Monitor) fault(n int, frame uint32) {
	if m.Config.Features.FaultDiagnostics {
		m.Fault.Handle(n, frame)
	}

	m.Core.Halt()
}

// Veneer dispatches a Non-secure call landed on a veneer slot.
func (m *Monitor) Veneer(index int, arg uint32) (ret uint32) {
	ret, err := m.Veneers.Enter(index, arg)

	if err != nil {
		log.Printf("SM %v", err)
	}

	return
}
