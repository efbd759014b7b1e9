// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package config describes the Secure firmware configuration: memory
// partitioning, call gate and periodic trigger parameters and the features
// compiled in a single firmware image.
//
// Target firmware uses the compiled Default() configuration, host tools can
// override it from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/sau"
	"github.com/usbarmory/GoTEE-cmse/systick"
	"github.com/usbarmory/GoTEE-cmse/veneer"
	"github.com/usbarmory/GoTEE-cmse/watchdog"
)

// Features represents optional firmware components.
type Features struct {
	// Veneer exposes Secure functions through the NSC window
	Veneer bool `toml:"veneer"`
	// CallGate enables periodic calls into the Non-secure World
	CallGate bool `toml:"call_gate"`
	// FaultDiagnostics reports unrecoverable exceptions before halting,
	// when disabled the core halts silently
	FaultDiagnostics bool `toml:"fault_diagnostics"`
	// Watchdog bounds the duration of call gate invocations
	Watchdog bool `toml:"watchdog"`
	// OverrunCount detects periodic trigger overruns
	OverrunCount bool `toml:"overrun_count"`
}

// Config represents the Secure firmware configuration.
type Config struct {
	// Frequency is the core clock in Hz
	Frequency uint64 `toml:"frequency"`
	// Reload is the periodic trigger interval in core cycles
	Reload uint32 `toml:"reload"`

	// ImageBase is the Non-secure vector table location
	ImageBase uint32 `toml:"image_base"`
	// Mailbox is the call gate target location
	Mailbox uint32 `toml:"mailbox"`

	// Code is the Non-secure code window, bounding the image entry point
	Code mem.Window `toml:"code"`
	// RAM is the Non-secure data window, bounding the image stack pointer
	RAM mem.Window `toml:"ram"`
	// Veneers is the window reserved to NSC regions
	Veneers mem.Window `toml:"veneers"`
	// Call is the approved call gate target window
	Call mem.Window `toml:"call"`

	// WatchdogBase is the watchdog peripheral address
	WatchdogBase uint32 `toml:"watchdog_base"`
	// WatchdogTimeout is the call gate invocation budget in watchdog
	// clock cycles
	WatchdogTimeout uint32 `toml:"watchdog_timeout"`

	// Regions is the SAU region table
	Regions []sau.Region `toml:"region"`

	Features Features `toml:"features"`
}

var ErrInvalid = errors.New("invalid configuration")

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Frequency:       64000000,
		Reload:          64000,
		ImageBase:       mem.ImageBase,
		Mailbox:         mem.Mailbox,
		Code:            mem.NonSecureWindow,
		RAM:             mem.NonSecureRAMWindow,
		Veneers:         mem.VeneerWindow,
		Call:            mem.CallWindow,
		WatchdogBase:    watchdog.Base,
		WatchdogTimeout: 64000000,
		Regions: []sau.Region{
			{
				Name:    "ns_flash",
				Index:   0,
				Base:    mem.NonSecureStart,
				Limit:   mem.NonSecureStart + mem.NonSecureSize - 1,
				Enabled: true,
			},
			{
				Name:    "ns_sram",
				Index:   1,
				Base:    mem.NonSecureRAMStart,
				Limit:   mem.NonSecureRAMStart + mem.NonSecureRAMSize - 1,
				Enabled: true,
			},
			{
				Name:    "veneers",
				Index:   2,
				Base:    mem.VeneerStart,
				Limit:   mem.VeneerStart + mem.VeneerSize - 1,
				NSC:     true,
				Enabled: true,
			},
		},
		Features: Features{
			Veneer:           true,
			CallGate:         true,
			FaultDiagnostics: true,
			Watchdog:         true,
			OverrunCount:     true,
		},
	}
}

// Load overrides the default configuration with TOML encoded settings,
// unknown keys are rejected.
func Load(r io.Reader) (c *Config, err error) {
	c = Default()

	md, err := toml.NewDecoder(r).Decode(c)

	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		var keys []string

		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("unknown keys %s: %w", strings.Join(keys, ", "), ErrInvalid)
	}

	return
}

// LoadFile loads a TOML configuration file.
func LoadFile(path string) (c *Config, err error) {
	c = Default()

	md, err := toml.DecodeFile(path, c)

	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s: %w", path, undecoded[0], ErrInvalid)
	}

	return
}

// Encode writes the configuration in TOML format.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks the configuration consistency, it must pass before any
// hardware is programmed.
func (c *Config) Validate() (err error) {
	if err = sau.Validate(c.Regions, c.Veneers); err != nil {
		return
	}

	for _, w := range []struct {
		name string
		w    mem.Window
	}{
		{"code", c.Code},
		{"ram", c.RAM},
		{"veneers", c.Veneers},
		{"call", c.Call},
	} {
		if !w.w.Valid() {
			return fmt.Errorf("%s window %v: %w", w.name, w.w, ErrInvalid)
		}
	}

	if c.Frequency == 0 {
		return fmt.Errorf("zero frequency: %w", ErrInvalid)
	}

	if c.Features.Veneer {
		if err = c.validateVeneers(); err != nil {
			return
		}
	}

	if c.Features.CallGate {
		if c.Reload < systick.MinReload || c.Reload > systick.MaxReload {
			return fmt.Errorf("reload %d: %w", c.Reload, systick.ErrReload)
		}

		if !c.Code.Encloses(c.Call) {
			return fmt.Errorf("call window %v outside of code %v: %w", c.Call, c.Code, ErrInvalid)
		}

		if c.Mailbox&3 != 0 || !(c.Code.Contains(c.Mailbox) || c.RAM.Contains(c.Mailbox)) {
			return fmt.Errorf("mailbox %#.8x: %w", c.Mailbox, ErrInvalid)
		}
	}

	if c.Features.Watchdog && c.WatchdogTimeout == 0 {
		return fmt.Errorf("zero watchdog timeout: %w", ErrInvalid)
	}

	if c.ImageBase&0x7f != 0 || !c.Code.Contains(c.ImageBase) {
		return fmt.Errorf("image base %#.8x: %w", c.ImageBase, ErrInvalid)
	}

	return
}

// validateVeneers checks that the veneer window holds every exposed Secure
// function and that each slot is attributed Non-secure Callable.
func (c *Config) validateVeneers() error {
	n := len(veneer.Names)

	if slots := c.Veneers.Size() / veneer.SlotSize; slots < uint32(n) {
		return fmt.Errorf("veneer window %v holds %d of %d entries: %w", c.Veneers, slots, n, ErrInvalid)
	}

	for i := 0; i < n; i++ {
		addr := c.Veneers.Start + uint32(i)*veneer.SlotSize

		for _, a := range []uint32{addr, addr + veneer.SlotSize - 1} {
			if attr, _ := sau.Attribution(c.Regions, a); attr != sau.NonSecureCallable {
				return fmt.Errorf("veneer %s at %#.8x attributed %v: %w", veneer.Names[i], a, attr, ErrInvalid)
			}
		}
	}

	return nil
}
