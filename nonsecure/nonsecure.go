// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package nonsecure implements the reference Non-secure World program: it
// publishes a callable function through the call gate mailbox, invokes the
// Secure veneers and then runs a busy workload which the Secure World
// periodically preempts.
package nonsecure

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/mem"
)

// Reference image layout
const (
	// ResetHandler is the image entry point
	ResetHandler = mem.NonSecureStart + 0x400
	// Callable is the function published through the mailbox, within the
	// approved call window
	Callable = mem.CallStart + 0x50
	// StackTop is the initial main stack pointer
	StackTop = mem.NonSecureRAMStart + mem.NonSecureRAMSize
	// Workload is the number of cycles spent by each main loop iteration
	Workload = 8000000
)

// World represents the Non-secure view of the processor.
type World interface {
	io.Writer

	// Load performs an aligned 32-bit read.
	Load(addr uint32) uint32
	// Store performs an aligned 32-bit write.
	Store(addr uint32, val uint32)
	// CallSecure calls a Secure veneer, passing and returning r0.
	CallSecure(addr uint32, arg uint32) uint32
	// Spin busy waits for a number of core cycles.
	Spin(cycles uint64)
}

// Program represents the Non-secure reference program.
type Program struct {
	World World

	// Mailbox is the call gate target location
	Mailbox uint32
	// Callable is the function published in the mailbox
	Callable uint32
	// Entry is the nonsecure_entry_function veneer, 0 to skip
	Entry uint32
	// CurrentVM is the secure_current_vm veneer, 0 to skip
	CurrentVM uint32

	// Workload is the per iteration busy wait
	Workload uint64
	// Iterations bounds the main loop, 0 loops forever
	Iterations int
	// Probe, when set, is read before the main loop to exercise the
	// Secure World fault handling
	Probe uint32

	callbacks atomic.Uint64
	vm        uint32
}

// Header returns the image vector table header words.
func Header() (sp uint32, entry uint32) {
	return StackTop, cmse.FunctionAddress(ResetHandler)
}

// Main is the image entry point.
func (p *Program) Main() {
	w := p.World

	fmt.Fprintln(w, "Hello from nonsecure!")

	p.World.Store(p.Mailbox, cmse.FunctionAddress(p.Callable))

	if p.Entry != 0 {
		w.CallSecure(p.Entry, 0)
	}

	if p.CurrentVM != 0 {
		p.vm = w.CallSecure(p.CurrentVM, 0)
		fmt.Fprintf(w, "running as guest %d\n", p.vm)
	}

	if p.Probe != 0 {
		fmt.Fprintf(w, "reading %#.8x\n", p.Probe)
		w.Load(p.Probe)
	}

	for i := 0; p.Iterations == 0 || i < p.Iterations; i++ {
		fmt.Fprintln(w, "Hello from nonsecureloop!")
		w.Spin(p.Workload)
	}
}

// Callback is the function published through the call gate.
func (p *Program) Callback() {
	p.callbacks.Add(1)
	fmt.Fprintln(p.World, "Hello from cmse_nonsecure_call!")
}

// Callbacks returns the number of call gate invocations received.
func (p *Program) Callbacks() uint64 {
	return p.callbacks.Load()
}

// VM returns the guest index reported by the Secure World.
func (p *Program) VM() uint32 {
	return p.vm
}
