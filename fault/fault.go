// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fault implements diagnostics for unrecoverable exceptions: the
// stacked exception frame and the fault status are captured, reported on the
// Secure diagnostic channel and the core is halted.
package fault

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/usbarmory/GoTEE-cmse/cmse"
)

// SFSR_SFARVALID flags SFAR as holding the faulting address.
const SFSR_SFARVALID = 6

// Snapshot represents the processor state captured on exception entry.
type Snapshot struct {
	// Exception is the exception number
	Exception int
	// Frame is the stacked frame address
	Frame uint32

	R0   uint32
	R1   uint32
	R2   uint32
	R3   uint32
	R12  uint32
	LR   uint32
	PC   uint32
	XPSR uint32

	// Status is the fault status register value (SFSR for SecureFault,
	// CFSR otherwise)
	Status uint32
	// Address is the SFAR value, when valid
	Address uint32
	// HFSR is the HardFault status register value
	HFSR uint32
}

// StatusRegister returns the name of the register captured in Status.
func (s *Snapshot) StatusRegister() string {
	if s.Exception == cmse.SECURE_FAULT {
		return "SFSR"
	}

	return "CFSR"
}

// Capture reads the basic exception frame at frame and the fault status
// registers relevant to the exception number.
func Capture(core cmse.Core, exception int, frame uint32) (s *Snapshot) {
	s = &Snapshot{
		Exception: exception,
		Frame:     frame,
	}

	for i, r := range []*uint32{&s.R0, &s.R1, &s.R2, &s.R3, &s.R12, &s.LR, &s.PC, &s.XPSR} {
		*r = core.Load(frame + uint32(i*4))
	}

	s.HFSR = core.Load(cmse.SCB_HFSR)

	if exception == cmse.SECURE_FAULT {
		s.Status = core.Load(cmse.SAU_SFSR)

		if s.Status&(1<<SFSR_SFARVALID) != 0 {
			s.Address = core.Load(cmse.SAU_SFAR)
		}
	} else {
		s.Status = core.Load(cmse.SCB_CFSR)
	}

	return
}

// Report writes the snapshot, one register per line.
func (s *Snapshot) Report(w io.Writer, symbol func(addr uint32) string) {
	fmt.Fprintf(w, "SM unrecoverable exception: %s (%d) frame:%#.8x\n", cmse.ExceptionName(s.Exception), s.Exception, s.Frame)

	for _, r := range []struct {
		name string
		val  uint32
	}{
		{"r0", s.R0},
		{"r1", s.R1},
		{"r2", s.R2},
		{"r3", s.R3},
		{"r12", s.R12},
		{"lr", s.LR},
		{"pc", s.PC},
		{"xpsr", s.XPSR},
	} {
		fmt.Fprintf(w, "  %-4s %#.8x", r.name, r.val)

		if symbol != nil && (r.name == "pc" || r.name == "lr") {
			if sym := symbol(r.val); sym != "" {
				fmt.Fprintf(w, " <%s>", sym)
			}
		}

		fmt.Fprintln(w)
	}

	if s.Address != 0 {
		fmt.Fprintf(w, "  SFAR %#.8x\n", s.Address)
	}

	if s.HFSR != 0 {
		fmt.Fprintf(w, "  HFSR %#.8x\n", s.HFSR)
	}

	fmt.Fprintf(w, "SM fault status (%s): %#.8x\n", s.StatusRegister(), s.Status)
}

// Handler represents the unrecoverable exception handler.
type Handler struct {
	sync.Mutex

	// Core gives access to the stacked frame and halts the processor
	Core cmse.Core
	// Output is the diagnostic channel, log.Writer() is used when nil
	Output io.Writer
	// Symbol, when set, resolves code addresses in reports
	Symbol func(addr uint32) string

	snapshots []*Snapshot
}

// Handle captures and reports the exception state, then halts.
func (h *Handler) Handle(exception int, frame uint32) {
	s := Capture(h.Core, exception, frame)

	h.Lock()
	h.snapshots = append(h.snapshots, s)
	h.Unlock()

	out := h.Output

	if out == nil {
		out = log.Writer()
	}

	s.Report(out, h.Symbol)

	h.Core.Halt()
}

// Snapshots returns the captured exception states.
func (h *Handler) Snapshots() []*Snapshot {
	h.Lock()
	defer h.Unlock()

	return append([]*Snapshot(nil), h.snapshots...)
}
