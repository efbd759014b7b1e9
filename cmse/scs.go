// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmse

// System Control Space register map (ARMv8-M Architecture Reference Manual,
// B3 and D1.2).
const (
	SCS_BASE    = 0xe000e000
	SCS_NS_BASE = 0xe002e000 // Non-secure alias

	// SysTick (Secure instance when accessed from Secure state)
	SYST_CSR   = SCS_BASE + 0x010
	SYST_RVR   = SCS_BASE + 0x014
	SYST_CVR   = SCS_BASE + 0x018
	SYST_CALIB = SCS_BASE + 0x01c

	// System Control Block
	SCB_ICSR  = SCS_BASE + 0xd04
	SCB_VTOR  = SCS_BASE + 0xd08
	SCB_AIRCR = SCS_BASE + 0xd0c
	SCB_SHCSR = SCS_BASE + 0xd24
	SCB_CFSR  = SCS_BASE + 0xd28
	SCB_HFSR  = SCS_BASE + 0xd2c
	SCB_MMFAR = SCS_BASE + 0xd34
	SCB_BFAR  = SCS_BASE + 0xd38

	// Security Attribution Unit
	SAU_CTRL = SCS_BASE + 0xdd0
	SAU_TYPE = SCS_BASE + 0xdd4
	SAU_RNR  = SCS_BASE + 0xdd8
	SAU_RBAR = SCS_BASE + 0xddc
	SAU_RLAR = SCS_BASE + 0xde0
	SAU_SFSR = SCS_BASE + 0xde4
	SAU_SFAR = SCS_BASE + 0xde8

	// Non-secure Vector Table Offset Register
	SCB_NS_VTOR = SCS_NS_BASE + 0xd08
)

// AIRCR fields
const (
	AIRCR_VECTKEY     = 16
	AIRCR_VECTKEY_VAL = 0x05fa
	AIRCR_PRIS        = 14
	AIRCR_BFHFNMINS   = 13
)

// SHCSR fields
const (
	SHCSR_SECUREFAULTENA = 19
	SHCSR_USGFAULTENA    = 18
	SHCSR_BUSFAULTENA    = 17
	SHCSR_MEMFAULTENA    = 16
)

// Exception numbers
const (
	RESET        = 1
	NMI          = 2
	HARD_FAULT   = 3
	MEM_MANAGE   = 4
	BUS_FAULT    = 5
	USAGE_FAULT  = 6
	SECURE_FAULT = 7
	SV_CALL      = 11
	PEND_SV      = 14
	SYS_TICK     = 15
)

// ExceptionName returns the architectural name of an exception number.
func ExceptionName(n int) string {
	switch n {
	case RESET:
		return "Reset"
	case NMI:
		return "NMI"
	case HARD_FAULT:
		return "HardFault"
	case MEM_MANAGE:
		return "MemManage"
	case BUS_FAULT:
		return "BusFault"
	case USAGE_FAULT:
		return "UsageFault"
	case SECURE_FAULT:
		return "SecureFault"
	case SV_CALL:
		return "SVCall"
	case PEND_SV:
		return "PendSV"
	case SYS_TICK:
		return "SysTick"
	default:
		return "IRQ"
	}
}
