// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

// This reference memory layout partitions an ARMv8-M device with 2MB of
// code memory and 256KB of SRAM between the Secure and Non-secure worlds.
const (
	// Secure World firmware
	SecureStart = 0x00000000
	SecureSize  = 0x001fff00 // 2MB - 256

	// Secure World veneers (Non-secure Callable)
	VeneerStart = 0x001fff00
	VeneerSize  = 0x00000100 // 256

	// Non-secure World firmware
	NonSecureStart = 0x00200000
	NonSecureSize  = 0x00080000 // 512KB

	// Non-secure World SRAM
	NonSecureRAMStart = 0x20000000
	NonSecureRAMSize  = 0x00030000 // 192KB

	// Secure World SRAM
	SecureRAMStart = 0x20030000
	SecureRAMSize  = 0x00010000 // 64KB
)

const (
	// ImageBase is the location of the Non-secure vector table, its first
	// two words are the initial stack pointer and the reset entry.
	ImageBase = NonSecureStart

	// CallStart is the base of the Non-secure window of functions which
	// the Secure World is allowed to call.
	CallStart = NonSecureStart + 0x800
	CallSize  = 0x100 // 256

	// Mailbox holds the address of the Non-secure function to be called
	// on each periodic trigger, it is written by the Non-secure World.
	Mailbox = CallStart + 0x4
)

var (
	// Secure World code and data, never exposed.
	SecureWindow    = NewWindow(SecureStart, SecureSize)
	SecureRAMWindow = NewWindow(SecureRAMStart, SecureRAMSize)

	// VeneerWindow is the only legal landing zone for Non-secure calls into
	// the Secure World.
	VeneerWindow = NewWindow(VeneerStart, VeneerSize)

	// NonSecureWindow holds the Non-secure image code.
	NonSecureWindow = NewWindow(NonSecureStart, NonSecureSize)
	// NonSecureRAMWindow holds the Non-secure data and stacks.
	NonSecureRAMWindow = NewWindow(NonSecureRAMStart, NonSecureRAMSize)

	// CallWindow is the approved target range of the call gate.
	CallWindow = NewWindow(CallStart, CallSize)
)
