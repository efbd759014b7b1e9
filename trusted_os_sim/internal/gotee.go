// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gotee runs the emulated Secure and Non-secure firmware on behalf of
// the host command line and its console.
package gotee

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/usbarmory/GoTEE-cmse/config"
	"github.com/usbarmory/GoTEE-cmse/internal/sim"
	"github.com/usbarmory/GoTEE-cmse/internal/system"
	"github.com/usbarmory/GoTEE-cmse/util"
)

// ErrNoDevice is returned when inspecting the device before any boot.
var ErrNoDevice = errors.New("no device, use `boot` first")

// Options represents the Non-secure program overrides applied at boot.
type Options struct {
	// Callable, when set, replaces the function published in the mailbox
	Callable uint32
	// Probe, when set, is an address read by the Non-secure program
	Probe uint32
	// Iterations bounds the Non-secure main loop, 0 for no bound
	Iterations int
}

var (
	mux sync.Mutex

	// Config is the configuration of the next boot
	Config = config.Default()
	// Output is the console shared by both worlds
	Output = &util.Output{}
	// Overrides is applied to the Non-secure program at each boot
	Overrides Options

	device *system.System
	result error
)

// Boot instantiates a new device and runs it for the given emulated duration,
// a zero duration runs it until the Secure World halts.
func Boot(d time.Duration) (err error) {
	mux.Lock()
	defer mux.Unlock()

	s := system.New(Config, Output.World(true), Output.World(false))

	if Overrides.Callable != 0 {
		s.Program.Callable = Overrides.Callable
	}

	s.Program.Probe = Overrides.Probe
	s.Program.Iterations = Overrides.Iterations

	device = s

	start := time.Now()
	result = s.Run(d)
	Output.Flush()

	log.Printf("SM emulated %v in %v (%d cycles)", s.Machine.Elapsed(), time.Since(start).Round(time.Millisecond), s.Machine.Cycles())

	return result
}

// Device calls fn with the last booted device, if any.
func Device(fn func(s *system.System, result error) error) (err error) {
	mux.Lock()
	defer mux.Unlock()

	if device == nil {
		return ErrNoDevice
	}

	return fn(device, result)
}

// Summary returns a description of the outcome of the last boot.
func Summary(s *system.System, result error) string {
	mon := s.Monitor
	status := "running"

	switch {
	case errors.Is(result, sim.ErrHalted):
		status = "halted"
	case errors.Is(result, sim.ErrLockup):
		status = "locked up"
	case result != nil:
		status = result.Error()
	case !mon.Launched():
		status = "not launched"
	}

	return fmt.Sprintf("status:%s elapsed:%v ticks:%d overruns:%d calls:%d rejects:%d callbacks:%d faults:%d",
		status,
		s.Machine.Elapsed(),
		mon.SysTick.Ticks(),
		mon.SysTick.Overruns(),
		mon.Gate.Calls(),
		mon.Gate.Rejects(),
		s.Program.Callbacks(),
		len(mon.Fault.Snapshots()),
	)
}
