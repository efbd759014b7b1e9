// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && cortexm

package cortexm

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"

	"github.com/usbarmory/GoTEE-cmse/cmse"
)

// Core represents the Secure state of the running processor.
type Core struct{}

func reg(addr uint32) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr)))
}

// Load implements cmse.Core.Load.
func (c *Core) Load(addr uint32) uint32 {
	return reg(addr).Get()
}

// Store implements cmse.Core.Store.
func (c *Core) Store(addr uint32, val uint32) {
	reg(addr).Set(val)
}

// Barrier implements cmse.Core.Barrier.
func (c *Core) Barrier() {
	arm.Asm("dsb sy\n\tisb sy")
}

// DisableInterrupts implements cmse.Core.DisableInterrupts.
func (c *Core) DisableInterrupts() (primask uint32) {
	return uint32(arm.DisableInterrupts())
}

// RestoreInterrupts implements cmse.Core.RestoreInterrupts.
func (c *Core) RestoreInterrupts(primask uint32) {
	arm.EnableInterrupts(uintptr(primask))
}

// SetNonSecureStack implements cmse.Core.SetNonSecureStack.
func (c *Core) SetNonSecureStack(sp uint32) {
	arm.AsmFull("msr MSP_NS, {sp}", map[string]interface{}{"sp": sp})
}

// BranchNonSecure implements cmse.Core.BranchNonSecure.
//
// The target address has its least significant bit cleared, as BXNS selects
// the Non-secure state with it.
func (c *Core) BranchNonSecure(entry uint32) {
	arm.AsmFull(`
		mov r12, {entry}
		movs r0, #0
		movs r1, #0
		movs r2, #0
		movs r3, #0
		bxns r12
	`, map[string]interface{}{"entry": cmse.InstructionAddress(entry)})

	for {
		arm.Asm("wfi")
	}
}

// CallNonSecure implements cmse.Core.CallNonSecure.
//
// Callee saved registers are preserved on the Secure stack and cleared,
// together with the argument registers, so that no Secure value reaches the
// Non-secure function.
func (c *Core) CallNonSecure(target uint32) {
	arm.AsmFull(`
		push {r4-r11, lr}
		mov r12, {target}
		movs r0, #0
		movs r1, #0
		movs r2, #0
		movs r3, #0
		mov r4, r0
		mov r5, r0
		mov r6, r0
		mov r7, r0
		mov r8, r0
		mov r9, r0
		mov r10, r0
		mov r11, r0
		blxns r12
		pop {r4-r11, lr}
	`, map[string]interface{}{"target": cmse.InstructionAddress(target)})
}

// Halt implements cmse.Core.Halt.
func (c *Core) Halt() {
	arm.DisableInterrupts()

	for {
		arm.Asm("wfi")
	}
}

var _ cmse.Core = (*Core)(nil)
