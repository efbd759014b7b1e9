// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && cortexm

// Non-secure World firmware: it publishes hello_from_ns through the call gate
// mailbox, calls the Secure veneers and runs a busy workload.
package main

import (
	"device/arm"

	"github.com/usbarmory/GoTEE-cmse/internal/semihosting"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/nonsecure"
)

var program *nonsecure.Program

//export hello_from_ns
func helloFromNS() {
	program.Callback()
}

func main() {
	w := &world{
		out: &semihosting.Channel{Host: &semihosting.Probe{}},
	}

	program = &nonsecure.Program{
		World:     w,
		Mailbox:   mem.Mailbox,
		Callable:  uint32(arm.AsmFull("ldr {}, =hello_from_ns", nil)),
		Entry:     uint32(arm.AsmFull("ldr {}, =nonsecure_entry_function", nil)),
		CurrentVM: uint32(arm.AsmFull("ldr {}, =secure_current_vm", nil)),
		Workload:  nonsecure.Workload,
	}

	// never returns
	program.Main()
}
