// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package worldswitch

import (
	"errors"
	"testing"

	"github.com/usbarmory/GoTEE-cmse/internal/sim"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/sau"
)

const (
	testSP    = mem.NonSecureRAMStart + mem.NonSecureRAMSize
	testEntry = mem.NonSecureStart + 0x141
)

func newMachine(t *testing.T, sp uint32, entry uint32) *sim.Machine {
	m := sim.New()

	hw := &sau.SAU{Core: m, Veneers: mem.VeneerWindow}

	err := hw.Configure([]sau.Region{
		{Index: 0, Base: mem.NonSecureStart, Limit: mem.NonSecureStart + mem.NonSecureSize - 1, Enabled: true},
		{Index: 1, Base: mem.NonSecureRAMStart, Limit: mem.NonSecureRAMStart + mem.NonSecureRAMSize - 1, Enabled: true},
	})

	if err != nil {
		t.Fatal(err)
	}

	m.LoadImage(mem.ImageBase, sp, entry)

	return m
}

func TestSwitch(t *testing.T) {
	m := newMachine(t, testSP, testEntry)

	var sp uint32
	var secure bool

	m.Map(&sim.Func{
		Name: "Reset_Handler",
		Addr: testEntry,
		Fn: func(uint32) uint32 {
			sp = m.NonSecureStack()
			secure = m.Secure()
			return 0
		},
	})

	err := m.Run(func() {
		if err := Boot(m, mem.ImageBase, mem.NonSecureRAMWindow, mem.NonSecureWindow); err != nil {
			t.Error(err)
		}

		t.Error("world switch returned")
	})

	if err != nil {
		t.Fatal(err)
	}

	if sp != testSP {
		t.Errorf("MSP_NS, got %#.8x, want %#.8x", sp, testSP)
	}

	if secure {
		t.Error("entry point executed in Secure state")
	}

	if vtor := m.VTORNonSecure(); vtor != mem.ImageBase {
		t.Errorf("VTOR_NS, got %#.8x, want %#.8x", vtor, mem.ImageBase)
	}

	bxns := m.Events("bxns")

	if len(bxns) != 1 || bxns[0].Addr != testEntry|1 {
		t.Errorf("got bxns events %v, want a single branch to %#.8x", bxns, testEntry|1)
	}

	// the barrier pair must precede the branch
	trace := m.Trace()

	for i, e := range trace {
		if e.Kind == "bxns" && (i == 0 || trace[i-1].Kind != "barrier") {
			t.Errorf("bxns not preceded by barrier: %v", trace[max(i-1, 0)])
		}
	}
}

func TestSwitchThumbBit(t *testing.T) {
	// an entry without mode bit is still branched to with the bit set
	m := newMachine(t, testSP, testEntry&^1)

	var entered bool

	m.Map(&sim.Func{Name: "Reset_Handler", Addr: testEntry, Fn: func(uint32) uint32 {
		entered = true
		return 0
	}})

	if err := m.Run(func() { Switch(m, ReadHeader(m, mem.ImageBase)) }); err != nil {
		t.Fatal(err)
	}

	if !entered {
		t.Error("entry point not executed")
	}

	if bxns := m.Events("bxns"); len(bxns) != 1 || bxns[0].Addr&1 == 0 {
		t.Errorf("got bxns events %v, want mode bit set", bxns)
	}
}

func TestCheck(t *testing.T) {
	ram := mem.NonSecureRAMWindow
	code := mem.NonSecureWindow

	for _, tc := range []struct {
		name  string
		sp    uint32
		entry uint32
		err   error
	}{
		{"valid", testSP, testEntry, nil},
		{"stack inside", mem.NonSecureRAMStart + 0x1000, testEntry, nil},
		{"stack above", testSP + 4, testEntry, ErrStack},
		{"stack at base", mem.NonSecureRAMStart, testEntry, ErrStack},
		{"stack unaligned", testSP - 2, testEntry, ErrStack},
		{"stack secure", mem.SecureRAMStart + 0x100, testEntry, ErrStack},
		{"erased", 0xffffffff, 0xffffffff, ErrStack},
		{"entry secure", testSP, mem.SecureStart + 0x101, ErrEntry},
		{"entry veneer", testSP, mem.VeneerStart + 1, ErrEntry},
		{"entry past image", testSP, mem.NonSecureStart + mem.NonSecureSize + 1, ErrEntry},
	} {
		h := &Header{Base: mem.ImageBase, SP: tc.sp, Entry: tc.entry}

		if err := h.Check(ram, code); !errors.Is(err, tc.err) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.err)
		}
	}
}

func TestBootInvalid(t *testing.T) {
	m := newMachine(t, 0, 0)

	err := m.Run(func() {
		if err := Boot(m, mem.ImageBase, mem.NonSecureRAMWindow, mem.NonSecureWindow); !errors.Is(err, ErrStack) {
			t.Errorf("got %v, want %v", err, ErrStack)
		}
	})

	if err != nil {
		t.Fatal(err)
	}

	if n := len(m.Events("bxns")); n != 0 {
		t.Errorf("got %d bxns events, want 0", n)
	}

	if vtor := m.VTORNonSecure(); vtor != 0 {
		t.Errorf("VTOR_NS modified on invalid header: %#.8x", vtor)
	}
}
