// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package system assembles the Secure monitor and the reference Non-secure
// program on the emulated core.
package system

import (
	"io"
	"time"

	"github.com/usbarmory/GoTEE-cmse/config"
	"github.com/usbarmory/GoTEE-cmse/internal/sim"
	"github.com/usbarmory/GoTEE-cmse/monitor"
	"github.com/usbarmory/GoTEE-cmse/nonsecure"
	"github.com/usbarmory/GoTEE-cmse/veneer"
)

// System represents an emulated device.
type System struct {
	Machine *sim.Machine
	Monitor *monitor.Monitor
	Program *nonsecure.Program
}

// New returns an emulated device running the Secure monitor with the given
// configuration, the Non-secure image is loaded but not started.
func New(conf *config.Config, secure io.Writer, nonSecure io.Writer) (s *System) {
	m := sim.New()
	m.Frequency = conf.Frequency
	m.Output = func(c byte, isSecure bool) {
		w := nonSecure

		if isSecure {
			w = secure
		}

		w.Write([]byte{c})
	}

	mon := monitor.New(m, conf, secure)
	mon.Fault.Symbol = func(addr uint32) string {
		if f, ok := m.Symbol(addr); ok {
			return f.Name
		}

		return ""
	}

	m.SetVector(mon.Exception)

	p := &nonsecure.Program{
		World:    m,
		Mailbox:  conf.Mailbox,
		Callable: nonsecure.Callable,
		Workload: nonsecure.Workload,
	}

	// veneers are placed at boot, as the linker would
	mon.Expose = func(e *veneer.Entry) {
		m.Map(&sim.Func{
			Name:   e.Name,
			Addr:   e.Addr,
			Size:   veneer.SlotSize,
			Secure: true,
			Fn:     e.Fn,
		})

		switch e.Name {
		case veneer.NonSecureEntry:
			p.Entry = e.Addr
		case veneer.CurrentVM:
			p.CurrentVM = e.Addr
		}
	}

	sp, entry := nonsecure.Header()
	m.LoadImage(conf.ImageBase, sp, entry)

	m.Map(
		&sim.Func{
			Name: "Reset_Handler",
			Addr: entry,
			Size: 0x100,
			Fn: func(uint32) uint32 {
				p.Main()
				return 0
			},
		},
		&sim.Func{
			Name: "hello_from_ns",
			Addr: nonsecure.Callable,
			Size: 0x20,
			Fn: func(uint32) uint32 {
				p.Callback()
				return 0
			},
		},
	)

	return &System{
		Machine: m,
		Monitor: mon,
		Program: p,
	}
}

// Run boots the device and runs it for the given emulated time, a zero
// duration runs it until it halts.
func (s *System) Run(d time.Duration) error {
	if d == 0 {
		return s.Machine.Run(s.Monitor.Start)
	}

	return s.Machine.RunFor(d, s.Monitor.Start)
}
