// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fault

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/internal/sim"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/sau"
)

const (
	testEntry = mem.NonSecureStart + 0x200
	testSP    = mem.NonSecureRAMStart + mem.NonSecureRAMSize
)

func setup(t *testing.T, secureFault bool) (*sim.Machine, *Handler, *bytes.Buffer) {
	m := sim.New()
	hw := &sau.SAU{Core: m, Veneers: mem.VeneerWindow}

	err := hw.Configure([]sau.Region{
		{Index: 0, Base: mem.NonSecureStart, Limit: mem.NonSecureStart + mem.NonSecureSize - 1, Enabled: true},
		{Index: 1, Base: mem.NonSecureRAMStart, Limit: mem.NonSecureRAMStart + mem.NonSecureRAMSize - 1, Enabled: true},
	})

	if err != nil {
		t.Fatal(err)
	}

	if secureFault {
		m.Store(cmse.SCB_SHCSR, 1<<cmse.SHCSR_SECUREFAULTENA)
	}

	out := &bytes.Buffer{}

	h := &Handler{
		Core:   m,
		Output: out,
		Symbol: func(addr uint32) string {
			if f, ok := m.Symbol(addr); ok {
				return f.Name
			}

			return ""
		},
	}

	m.SetVector(h.Handle)
	m.SetNonSecureStack(testSP)

	return m, h, out
}

func TestSecureFault(t *testing.T) {
	m, h, out := setup(t, true)

	var progress bool

	m.Map(&sim.Func{Name: "ns_main", Addr: testEntry, Size: 0x40, Fn: func(uint32) uint32 {
		for i, v := range []uint32{0x10, 0x11, 0x12, 0x13} {
			m.SetRegister(i, v)
		}

		m.SetRegister(12, 0x1c)
		m.Store(mem.SecureRAMStart, 0xbadc0de)
		progress = true

		return 0
	}})

	err := m.Run(func() { m.BranchNonSecure(testEntry | 1) })

	if !errors.Is(err, sim.ErrHalted) {
		t.Fatalf("got %v, want %v", err, sim.ErrHalted)
	}

	if progress {
		t.Error("execution resumed after fault")
	}

	snapshots := h.Snapshots()

	if len(snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snapshots))
	}

	want := &Snapshot{
		Exception: cmse.SECURE_FAULT,
		Frame:     testSP - sim.FrameSize,
		R0:        0x10,
		R1:        0x11,
		R2:        0x12,
		R3:        0x13,
		R12:       0x1c,
		PC:        testEntry,
		XPSR:      1 << 24,
		Status:    1<<sim.SFSR_AUVIOL | 1<<sim.SFSR_SFARVALID,
		Address:   mem.SecureRAMStart,
	}

	if diff := cmp.Diff(want, snapshots[0]); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	report := out.String()

	for _, line := range []string{
		"SM unrecoverable exception: SecureFault (7)",
		fmt.Sprintf("  pc   %#.8x <ns_main>", testEntry),
		"  r12  0x0000001c",
		"SM fault status (SFSR): 0x00000048",
	} {
		if !strings.Contains(report, line) {
			t.Errorf("report missing %q:\n%s", line, report)
		}
	}

	if n := strings.Count(report, "\n"); n != 11 {
		t.Errorf("got %d report lines, want 11:\n%s", n, report)
	}
}

func TestHardFault(t *testing.T) {
	m, h, out := setup(t, false)

	m.Map(&sim.Func{Name: "ns_main", Addr: testEntry, Fn: func(uint32) uint32 {
		m.Load(mem.NonSecureRAMStart + 2)
		return 0
	}})

	if err := m.Run(func() { m.BranchNonSecure(testEntry | 1) }); !errors.Is(err, sim.ErrHalted) {
		t.Fatalf("got %v, want %v", err, sim.ErrHalted)
	}

	snapshots := h.Snapshots()

	if len(snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snapshots))
	}

	want := &Snapshot{
		Exception: cmse.HARD_FAULT,
		Status:    1 << sim.CFSR_UNALIGNED,
		HFSR:      1 << sim.HFSR_FORCED,
	}

	opts := cmpopts.IgnoreFields(Snapshot{}, "Frame", "R0", "R1", "R2", "R3", "R12", "LR", "PC", "XPSR")

	if diff := cmp.Diff(want, snapshots[0], opts); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(out.String(), "SM fault status (CFSR): 0x01000000") {
		t.Errorf("unexpected report:\n%s", out.String())
	}
}

type haltingCore struct {
	cmse.Core
	halts int
}

func (c *haltingCore) Halt() {
	c.halts++
}

func TestHandleHalts(t *testing.T) {
	m := sim.New()
	c := &haltingCore{Core: m}
	h := &Handler{Core: c, Output: &bytes.Buffer{}}

	h.Handle(cmse.NMI, mem.SecureRAMStart)

	if c.halts != 1 {
		t.Errorf("got %d halts, want 1", c.halts)
	}

	if s := h.Snapshots(); len(s) != 1 || s[0].StatusRegister() != "CFSR" {
		t.Errorf("unexpected snapshots %v", s)
	}
}
