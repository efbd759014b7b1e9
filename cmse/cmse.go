// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cmse defines the narrow hardware boundary used by the Secure World
// to drive the ARMv8-M Security Extension (CMSE).
//
// Every privileged operation (System Control Space register access, barrier
// sequencing, interrupt masking, Non-secure stack installation and the
// security state changing branches) goes through the Core interface. All
// other packages in this module are ordinary control flow over Core, which
// keeps the inline assembly surface confined to a single implementation per
// target (see package cortexm) and lets the same logic run on the host
// emulator.
package cmse

// Core represents the privileged primitives of an ARMv8-M processor with
// Security Extension, as seen from Secure state.
//
// Implementations are unsafe at the boundary: they dereference raw addresses
// and perform irreversible state transitions, callers are responsible for
// the validity of their arguments.
type Core interface {
	// Load performs an aligned 32-bit volatile read.
	Load(addr uint32) uint32
	// Store performs an aligned 32-bit volatile write.
	Store(addr uint32, val uint32)

	// Barrier issues a data synchronization barrier followed by an
	// instruction synchronization barrier (`dsb sy; isb sy`).
	Barrier()

	// DisableInterrupts sets PRIMASK and returns its previous value.
	DisableInterrupts() (primask uint32)
	// RestoreInterrupts restores a PRIMASK value returned by
	// DisableInterrupts.
	RestoreInterrupts(primask uint32)

	// SetNonSecureStack installs the Non-secure main stack pointer
	// (`msr MSP_NS`).
	SetNonSecureStack(sp uint32)
	// BranchNonSecure performs the one-way transition to Non-secure state
	// (`bxns`), it never returns.
	BranchNonSecure(entry uint32)
	// CallNonSecure calls a Non-secure function (`blxns`) and returns once
	// it returns.
	CallNonSecure(target uint32)

	// Halt stops forward progress permanently, it never returns.
	Halt()
}

// ThumbBit is the instruction set selection bit carried by branch targets
// and vector table entries.
const ThumbBit = 1

// FunctionAddress returns addr with the Thumb bit set, as found in vector
// table entries and function pointers.
func FunctionAddress(addr uint32) uint32 {
	return addr | ThumbBit
}

// InstructionAddress returns addr with the Thumb bit cleared, the address of
// the first instruction of a function.
func InstructionAddress(addr uint32) uint32 {
	return addr &^ ThumbBit
}
