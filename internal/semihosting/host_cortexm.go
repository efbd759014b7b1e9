// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && cortexm

package semihosting

import (
	"device/arm"
	"unsafe"
)

// Probe represents the semihosting interface of an attached debugger.
type Probe struct{}

// Write0 implements Host.Write0.
func (p *Probe) Write0(s []byte) {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return
	}

	arm.SemihostingCall(SYS_WRITE0, uintptr(unsafe.Pointer(&s[0])))
}

// Exit implements Host.Exit.
func (p *Probe) Exit(reason uint32) {
	arm.SemihostingCall(SYS_EXIT, uintptr(reason))
}
