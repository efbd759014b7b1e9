// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && cortexm

package main

/*
#cgo CFLAGS: -mcmse

#include <stdint.h>

void secure_exception(uint32_t n, uint32_t frame);
uint32_t veneer_nonsecure_entry_function(uint32_t arg);
uint32_t veneer_secure_current_vm(uint32_t arg);

// The exception frame is located through EXC_RETURN: S (bit 6) is set when
// the frame was stacked on the Secure stack, SPSEL (bit 2) when it was
// stacked on the process stack.
__attribute__((naked, used)) void cmse_exception_entry(void) {
	__asm__ volatile(
		"tst lr, #0x40\n"
		"bne 1f\n"
		"tst lr, #0x4\n"
		"ite eq\n"
		"mrseq r1, msp_ns\n"
		"mrsne r1, psp_ns\n"
		"b 2f\n"
		"1:\n"
		"tst lr, #0x4\n"
		"ite eq\n"
		"mrseq r1, msp\n"
		"mrsne r1, psp\n"
		"2:\n"
		"push {r4, lr}\n"
		"bl secure_exception\n"
		"pop {r4, pc}\n"
	);
}

#define VECTOR(name, n) \
	__attribute__((naked)) void name(void) { \
		__asm__ volatile("movs r0, #" #n "\n" "b cmse_exception_entry\n"); \
	}

VECTOR(NMI_Handler, 2)
VECTOR(MemoryManagement_Handler, 4)
VECTOR(BusFault_Handler, 5)
VECTOR(UsageFault_Handler, 6)
VECTOR(SecureFault_Handler, 7)
VECTOR(SysTick_Handler, 15)

// Entry functions, the linker (`--cmse-implib`) emits an SG veneer in the
// Non-secure Callable section for each __acle_se_ symbol generated here.
__attribute__((cmse_nonsecure_entry)) uint32_t nonsecure_entry_function(uint32_t arg) {
	return veneer_nonsecure_entry_function(arg);
}

__attribute__((cmse_nonsecure_entry)) uint32_t secure_current_vm(uint32_t arg) {
	return veneer_secure_current_vm(arg);
}
*/
import "C"

import (
	"github.com/usbarmory/GoTEE-cmse/veneer"
)

// HardFault remains with the runtime handler, which reports the faulting
// context and aborts.

//export secure_exception
func secureException(n uint32, frame uint32) {
	if mon == nil {
		core.Halt()
	}

	mon.Exception(int(n), frame)
}

//export veneer_nonsecure_entry_function
func nonSecureEntryFunction(arg uint32) uint32 {
	return mon.Veneer(index(veneer.NonSecureEntry), arg)
}

//export veneer_secure_current_vm
func secureCurrentVM(arg uint32) uint32 {
	return mon.Veneer(index(veneer.CurrentVM), arg)
}

func index(name string) int {
	e, ok := mon.Veneers.Lookup(name)

	if !ok {
		return -1
	}

	i, err := mon.Veneers.Index(e.Addr)

	if err != nil {
		return -1
	}

	return i
}
