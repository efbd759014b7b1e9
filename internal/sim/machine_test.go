// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/sau"
)

var testRegions = []sau.Region{
	{Index: 0, Base: mem.NonSecureStart, Limit: mem.NonSecureStart + mem.NonSecureSize - 1, Enabled: true},
	{Index: 1, Base: mem.NonSecureRAMStart, Limit: mem.NonSecureRAMStart + mem.NonSecureRAMSize - 1, Enabled: true},
	{Index: 2, Base: mem.VeneerStart, Limit: mem.VeneerStart + mem.VeneerSize - 1, NSC: true, Enabled: true},
}

func partitioned(t *testing.T) *Machine {
	t.Helper()

	m := New()
	hw := &sau.SAU{Core: m, Veneers: mem.VeneerWindow}

	if err := hw.Configure(testRegions); err != nil {
		t.Fatal(err)
	}

	return m
}

func TestAttribution(t *testing.T) {
	m := New()

	if got := m.Attribution(mem.NonSecureStart); got != sau.Secure {
		t.Errorf("attribution before enable, got %v, want %v", got, sau.Secure)
	}

	m = partitioned(t)

	for _, tc := range []struct {
		addr uint32
		want sau.Attribute
	}{
		{mem.SecureStart, sau.Secure},
		{mem.VeneerStart, sau.NonSecureCallable},
		{mem.NonSecureStart, sau.NonSecure},
		{mem.Mailbox, sau.NonSecure},
		{mem.NonSecureRAMStart + mem.NonSecureRAMSize - 4, sau.NonSecure},
		{mem.SecureRAMStart, sau.Secure},
	} {
		if got := m.Attribution(tc.addr); got != tc.want {
			t.Errorf("Attribution(%#.8x), got %v, want %v", tc.addr, got, tc.want)
		}
	}

	hw := &sau.SAU{Core: m, Veneers: mem.VeneerWindow}

	if diff := cmp.Diff(testRegions, hw.Read()[:3]); diff != "" {
		t.Errorf("read back mismatch (-want +got):\n%s", diff)
	}
}

func TestSecureFault(t *testing.T) {
	m := partitioned(t)
	m.Store(cmse.SCB_SHCSR, 1<<cmse.SHCSR_SECUREFAULTENA)

	var vectors []int

	m.SetVector(func(n int, frame uint32) {
		vectors = append(vectors, n)
		m.Halt()
	})

	m.Map(&Func{
		Name: "ns_main",
		Addr: mem.NonSecureStart + 0x100,
		Fn: func(uint32) uint32 {
			m.Load(mem.SecureRAMStart)
			return 0
		},
	})

	m.SetNonSecureStack(mem.NonSecureRAMStart + mem.NonSecureRAMSize)

	err := m.Run(func() {
		m.BranchNonSecure(cmse.FunctionAddress(mem.NonSecureStart + 0x100))
	})

	if !errors.Is(err, ErrHalted) {
		t.Fatalf("got %v, want %v", err, ErrHalted)
	}

	if diff := cmp.Diff([]int{cmse.SECURE_FAULT}, vectors); diff != "" {
		t.Errorf("vectors mismatch (-want +got):\n%s", diff)
	}

	sfsr := m.Load(cmse.SAU_SFSR)

	if sfsr&(1<<SFSR_AUVIOL) == 0 || sfsr&(1<<SFSR_SFARVALID) == 0 {
		t.Errorf("SFSR %#.8x, AUVIOL/SFARVALID not set", sfsr)
	}

	if sfar := m.Load(cmse.SAU_SFAR); sfar != mem.SecureRAMStart {
		t.Errorf("SFAR, got %#.8x, want %#.8x", sfar, mem.SecureRAMStart)
	}
}

func TestHardFaultEscalation(t *testing.T) {
	m := partitioned(t)

	var got int

	m.SetVector(func(n int, frame uint32) {
		got = n
		m.Halt()
	})

	m.Map(&Func{Name: "ns_main", Addr: mem.NonSecureStart + 0x100, Fn: func(uint32) uint32 {
		// not an SG landing pad
		m.CallSecure(mem.SecureStart+0x400, 0)
		return 0
	}})

	m.Map(&Func{Name: "secret", Addr: mem.SecureStart + 0x400, Secure: true, Fn: func(uint32) uint32 {
		t.Error("Secure function entered outside of NSC window")
		return 0
	}})

	if err := m.Run(func() { m.BranchNonSecure(mem.NonSecureStart + 0x101) }); !errors.Is(err, ErrHalted) {
		t.Fatalf("got %v, want %v", err, ErrHalted)
	}

	if got != cmse.HARD_FAULT {
		t.Errorf("got exception %d, want %d", got, cmse.HARD_FAULT)
	}

	if hfsr := m.Load(cmse.SCB_HFSR); hfsr&(1<<HFSR_FORCED) == 0 {
		t.Errorf("HFSR %#.8x, FORCED not set", hfsr)
	}

	if sfsr := m.Load(cmse.SAU_SFSR); sfsr&(1<<SFSR_INVEP) == 0 {
		t.Errorf("SFSR %#.8x, INVEP not set", sfsr)
	}
}

func TestSecureUsageFault(t *testing.T) {
	m := partitioned(t)
	m.Store(cmse.SCB_SHCSR, 1<<cmse.SHCSR_USGFAULTENA)

	var vectors []int
	var frames []uint32

	m.SetVector(func(n int, frame uint32) {
		vectors = append(vectors, n)
		frames = append(frames, frame)
		m.Halt()
	})

	err := m.Run(func() {
		m.Load(mem.SecureRAMStart + 1)
	})

	if !errors.Is(err, ErrHalted) {
		t.Fatalf("got %v, want %v", err, ErrHalted)
	}

	if diff := cmp.Diff([]int{cmse.USAGE_FAULT}, vectors); diff != "" {
		t.Errorf("vectors mismatch (-want +got):\n%s", diff)
	}

	// taken from Secure state, the frame is on the Secure stack
	want := []uint32{mem.SecureRAMStart + mem.SecureRAMSize - FrameSize}

	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	if hfsr := m.Load(cmse.SCB_HFSR); hfsr&(1<<HFSR_FORCED) != 0 {
		t.Errorf("HFSR %#.8x, enabled fault escalated", hfsr)
	}
}

func TestLockup(t *testing.T) {
	m := partitioned(t)

	m.SetVector(func(n int, frame uint32) {
		// returning from a fault handler
	})

	err := m.Run(func() {
		m.Load(mem.SecureRAMStart + 1)
	})

	if !errors.Is(err, ErrLockup) {
		t.Fatalf("got %v, want %v", err, ErrLockup)
	}
}

func TestNonSecureCallable(t *testing.T) {
	m := partitioned(t)

	m.Map(&Func{Name: "veneer", Addr: mem.VeneerStart, Secure: true, Fn: func(r0 uint32) uint32 {
		if !m.Secure() {
			t.Error("veneer running in Non-secure state")
		}

		return r0 + 1
	}})

	var ret uint32

	m.Map(&Func{Name: "ns_main", Addr: mem.NonSecureStart + 0x100, Fn: func(uint32) uint32 {
		ret = m.CallSecure(cmse.FunctionAddress(mem.VeneerStart), 41)

		if m.Secure() {
			t.Error("Secure state leaked on veneer return")
		}

		return 0
	}})

	if err := m.Run(func() { m.BranchNonSecure(mem.NonSecureStart + 0x101) }); err != nil {
		t.Fatal(err)
	}

	if ret != 42 {
		t.Errorf("got %d, want 42", ret)
	}

	if n := len(m.Events("sg")); n != 1 {
		t.Errorf("got %d secure gateway events, want 1", n)
	}
}

func TestSysTick(t *testing.T) {
	m := New()

	var ticks int
	var frames []uint32

	m.SetVector(func(n int, frame uint32) {
		if n != cmse.SYS_TICK {
			t.Fatalf("unexpected exception %d", n)
		}

		ticks++
		frames = append(frames, frame)
	})

	m.Store(cmse.SYST_RVR, 64000-1)
	m.Store(cmse.SYST_CVR, 0)
	m.Store(cmse.SYST_CSR, systEnable|systTickInt|systClkSource)

	if err := m.RunFor(10*time.Millisecond, func() { m.Spin(1 << 40) }); err != nil {
		t.Fatal(err)
	}

	if ticks != 10 {
		t.Errorf("got %d ticks, want 10", ticks)
	}

	if got := m.Elapsed(); got != 10*time.Millisecond {
		t.Errorf("elapsed %v, want 10ms", got)
	}

	want := uint32(mem.SecureRAMStart + mem.SecureRAMSize - FrameSize)

	for _, f := range frames {
		if f != want {
			t.Errorf("frame at %#.8x, want %#.8x", f, want)
		}
	}

	if csr := m.Load(cmse.SYST_CSR); csr&systCountFlag == 0 {
		t.Errorf("CSR %#.8x, COUNTFLAG not set", csr)
	}

	if csr := m.Load(cmse.SYST_CSR); csr&systCountFlag != 0 {
		t.Errorf("CSR %#.8x, COUNTFLAG not cleared by read", csr)
	}
}

func TestSysTickMasked(t *testing.T) {
	m := New()

	var ticks int

	m.SetVector(func(n int, frame uint32) {
		ticks++
	})

	m.Store(cmse.SYST_RVR, 1000-1)
	m.Store(cmse.SYST_CSR, systEnable|systTickInt)

	err := m.Run(func() {
		primask := m.DisableInterrupts()
		m.Spin(10000)

		if ticks != 0 {
			t.Errorf("got %d ticks while masked", ticks)
		}

		m.RestoreInterrupts(primask)
	})

	if err != nil {
		t.Fatal(err)
	}

	// all masked expiries collapse in a single pending exception
	if ticks != 1 {
		t.Errorf("got %d ticks after unmasking, want 1", ticks)
	}
}

func TestWatchdog(t *testing.T) {
	m := New()

	var got []int

	m.SetVector(func(n int, frame uint32) {
		got = append(got, n)
		m.Halt()
	})

	m.Store(WatchdogBase+wdogLock, wdogUnlockKey)
	m.Store(WatchdogBase+wdogLoad, 5000)
	m.Store(WatchdogBase+wdogControl, wdogIntEn|wdogResEn)
	m.Store(WatchdogBase+wdogLock, 0)

	if m.Load(WatchdogBase+wdogLock) != 1 {
		t.Error("watchdog not locked")
	}

	err := m.Run(func() {
		m.Spin(4000)

		if len(got) != 0 {
			t.Fatal("watchdog expired early")
		}

		m.Spin(2000)
	})

	if !errors.Is(err, ErrHalted) {
		t.Fatalf("got %v, want %v", err, ErrHalted)
	}

	if diff := cmp.Diff([]int{cmse.NMI}, got); diff != "" {
		t.Errorf("vectors mismatch (-want +got):\n%s", diff)
	}
}

func TestSymbol(t *testing.T) {
	m := New()

	m.Map(
		&Func{Name: "a", Addr: 0x1001, Size: 0x10},
		&Func{Name: "b", Addr: 0x2000, Size: 0x10},
	)

	for _, tc := range []struct {
		addr uint32
		name string
		ok   bool
	}{
		{0x1000, "a", true},
		{0x100f, "a", true},
		{0x1010, "a", false},
		{0x2004, "b", true},
	} {
		f, ok := m.Symbol(tc.addr)

		if f == nil || f.Name != tc.name || ok != tc.ok {
			t.Errorf("Symbol(%#x), got %v %v, want %s %v", tc.addr, f, ok, tc.name, tc.ok)
		}
	}

	if _, ok := m.Symbol(0x10); ok {
		t.Error("Symbol below first function")
	}
}
