// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package worldswitch implements the one-way boot transition from the Secure
// World into the Non-secure image.
package worldswitch

import (
	"errors"
	"fmt"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/mem"
)

var (
	ErrStack = errors.New("initial stack pointer outside of Non-secure RAM")
	ErrEntry = errors.New("entry address outside of Non-secure code")
)

// Header represents the first two words of the Non-secure vector table.
type Header struct {
	// Base is the vector table location
	Base uint32
	// SP is the initial Non-secure main stack pointer
	SP uint32
	// Entry is the Non-secure reset handler address
	Entry uint32
}

func (h *Header) String() string {
	return fmt.Sprintf("vtor:%#.8x sp:%#.8x entry:%#.8x", h.Base, h.SP, h.Entry)
}

// ReadHeader reads the Non-secure image header at base, the memory contents
// are untrusted.
func ReadHeader(core cmse.Core, base uint32) *Header {
	return &Header{
		Base:  base,
		SP:    core.Load(base),
		Entry: core.Load(base + 4),
	}
}

// Check bounds the header words, the stack pointer must be word aligned and
// fall within (or at the top of) the Non-secure RAM window, the entry point
// must fall within the Non-secure code window.
func (h *Header) Check(ram mem.Window, code mem.Window) error {
	sp := h.SP

	if sp&3 != 0 || sp <= ram.Start || (sp-1) > ram.End {
		return fmt.Errorf("%#.8x, %v: %w", sp, ram, ErrStack)
	}

	if entry := cmse.InstructionAddress(h.Entry); !code.Contains(entry) {
		return fmt.Errorf("%#.8x, %v: %w", h.Entry, code, ErrEntry)
	}

	return nil
}

// Switch installs the Non-secure vector table and stack pointer, then
// branches to the entry point in Non-secure state. It never returns.
func Switch(core cmse.Core, h *Header) {
	core.Store(cmse.SCB_NS_VTOR, h.Base)
	core.SetNonSecureStack(h.SP)
	core.Barrier()
	core.BranchNonSecure(cmse.FunctionAddress(h.Entry))
}

// Boot reads and checks the header found at base and, when valid, performs
// the world switch. It returns only on invalid headers.
func Boot(core cmse.Core, base uint32, ram mem.Window, code mem.Window) (err error) {
	h := ReadHeader(core, base)

	if err = h.Check(ram, code); err != nil {
		return
	}

	Switch(core, h)

	return
}
