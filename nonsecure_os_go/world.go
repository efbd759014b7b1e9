// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && cortexm

package main

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"

	"github.com/usbarmory/GoTEE-cmse/internal/semihosting"
)

// world implements nonsecure.World on the running processor.
type world struct {
	out *semihosting.Channel
}

func (w *world) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w *world) Load(addr uint32) uint32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Get()
}

func (w *world) Store(addr uint32, val uint32) {
	(*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Set(val)
}

// CallSecure branches to a veneer, the SG instruction found there performs
// the transition to Secure state.
func (w *world) CallSecure(addr uint32, arg uint32) uint32 {
	return uint32(arm.AsmFull(`
		push {lr}
		mov r0, {arg}
		mov r12, {addr}
		blx r12
		pop {lr}
		mov {}, r0
	`, map[string]interface{}{"addr": addr | 1, "arg": arg}))
}

func (w *world) Spin(cycles uint64) {
	// a nop loop iteration takes at least 3 cycles
	for i := uint64(0); i < cycles/3; i++ {
		arm.Asm("nop")
	}
}
