// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package callgate_test

//go:generate mockgen -write_package_comment=false -package callgate_test -destination mock_core_test.go github.com/usbarmory/GoTEE-cmse/cmse Core

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"

	"github.com/usbarmory/GoTEE-cmse/callgate"
	"github.com/usbarmory/GoTEE-cmse/internal/sim"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/sau"
)

type fakeWatchdog struct {
	armed, disarmed int
}

func (w *fakeWatchdog) Arm()    { w.armed++ }
func (w *fakeWatchdog) Disarm() { w.disarmed++ }

func TestTrigger(t *testing.T) {
	testCases := []struct {
		desc        string
		mailbox     uint32
		wantCalls   int
		wantTarget  uint32
		wantRejects uint64
		wantErr     error
		wantStates  []callgate.State
	}{
		{
			desc:       "inside window",
			mailbox:    0x00200850,
			wantCalls:  1,
			wantTarget: 0x00200851,
			wantStates: []callgate.State{callgate.Triggered, callgate.Validating, callgate.Invoking, callgate.Returned, callgate.Idle},
		},
		{
			desc:       "function pointer",
			mailbox:    0x002008fd,
			wantCalls:  1,
			wantTarget: 0x002008fd,
			wantStates: []callgate.State{callgate.Triggered, callgate.Validating, callgate.Invoking, callgate.Returned, callgate.Idle},
		},
		{
			desc:        "outside window",
			mailbox:     0x00300000,
			wantRejects: 1,
			wantErr:     callgate.ErrOutsideWindow,
			wantStates:  []callgate.State{callgate.Triggered, callgate.Validating, callgate.Rejected, callgate.Idle},
		},
		{
			desc:        "below window",
			mailbox:     0x002007ff,
			wantRejects: 1,
			wantErr:     callgate.ErrOutsideWindow,
			wantStates:  []callgate.State{callgate.Triggered, callgate.Validating, callgate.Rejected, callgate.Idle},
		},
		{
			desc:        "mailbox word",
			mailbox:     mem.Mailbox | 1,
			wantRejects: 1,
			wantErr:     callgate.ErrOutsideWindow,
			wantStates:  []callgate.State{callgate.Triggered, callgate.Validating, callgate.Rejected, callgate.Idle},
		},
		{
			desc:        "secure veneer",
			mailbox:     mem.VeneerStart | 1,
			wantRejects: 1,
			wantErr:     callgate.ErrOutsideWindow,
			wantStates:  []callgate.State{callgate.Triggered, callgate.Validating, callgate.Rejected, callgate.Idle},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			core := NewMockCore(ctrl)
			wdog := &fakeWatchdog{}

			var states []callgate.State

			g := &callgate.Gate{
				Core:     core,
				Window:   mem.CallWindow,
				Mailbox:  mem.Mailbox,
				Watchdog: wdog,
				Transition: func(_ callgate.State, to callgate.State) {
					states = append(states, to)
				},
			}

			load := core.EXPECT().Load(gomock.Eq(uint32(mem.Mailbox))).Return(tC.mailbox).Times(1)

			if tC.wantCalls > 0 {
				barrier := core.EXPECT().Barrier().Times(tC.wantCalls)
				call := core.EXPECT().CallNonSecure(gomock.Eq(tC.wantTarget)).Times(tC.wantCalls)
				gomock.InOrder(load, barrier, call)
			}

			if err := g.Trigger(); !errors.Is(err, tC.wantErr) {
				t.Errorf("expected %v, got %v", tC.wantErr, err)
			}

			if g.Calls() != uint64(tC.wantCalls) {
				t.Errorf("expected %d calls, got %d", tC.wantCalls, g.Calls())
			}

			if g.Rejects() != tC.wantRejects {
				t.Errorf("expected %d rejects, got %d", tC.wantRejects, g.Rejects())
			}

			if wdog.armed != tC.wantCalls || wdog.disarmed != tC.wantCalls {
				t.Errorf("expected watchdog armed/disarmed %d times, got %d/%d", tC.wantCalls, wdog.armed, wdog.disarmed)
			}

			if diff := cmp.Diff(tC.wantStates, states); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}

			if g.State() != callgate.Idle {
				t.Errorf("expected idle gate, got %v", g.State())
			}
		})
	}
}

func TestInvokeUnvalidated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no expectations, any core access fails the test
	g := &callgate.Gate{Core: NewMockCore(ctrl), Window: mem.CallWindow}

	if err := g.Invoke(callgate.Target{}); !errors.Is(err, callgate.ErrOutsideWindow) {
		t.Errorf("expected %v, got %v", callgate.ErrOutsideWindow, err)
	}
}

func TestInvokeForeignWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// validated by a gate approving the whole address space
	wide := &callgate.Gate{Window: mem.Window{Start: 0, End: 0xffffffff}, Mailbox: mem.Mailbox}
	target, err := wide.Validate(mem.SecureStart + 0x1000)

	if err != nil {
		t.Fatal(err)
	}

	// no expectations, any core access fails the test
	g := &callgate.Gate{Core: NewMockCore(ctrl), Window: mem.CallWindow, Mailbox: mem.Mailbox}

	if err := g.Invoke(target); !errors.Is(err, callgate.ErrOutsideWindow) {
		t.Errorf("expected %v, got %v", callgate.ErrOutsideWindow, err)
	}

	if g.Calls() != 0 {
		t.Errorf("expected no calls, got %d", g.Calls())
	}
}

func TestValidate(t *testing.T) {
	g := &callgate.Gate{Window: mem.CallWindow, Mailbox: mem.Mailbox}

	for _, addr := range []uint32{mem.CallStart, mem.Mailbox + 4, mem.CallStart + mem.CallSize - 2, mem.CallStart + mem.CallSize - 1} {
		target, err := g.Validate(addr)

		if err != nil {
			t.Errorf("Validate(%#.8x): %v", addr, err)
		}

		if target.Addr()&1 == 0 {
			t.Errorf("Validate(%#.8x): target %#.8x without Thumb bit", addr, target.Addr())
		}
	}

	for _, addr := range []uint32{0, mem.CallStart - 1, mem.Mailbox, mem.Mailbox + 3, mem.CallStart + mem.CallSize, 0xffffffff} {
		if _, err := g.Validate(addr); !errors.Is(err, callgate.ErrOutsideWindow) {
			t.Errorf("Validate(%#.8x), expected %v, got %v", addr, callgate.ErrOutsideWindow, err)
		}
	}
}

// TestEmulated checks that only valid targets reach Non-secure code, and that
// invalid ones raise no exception.
func TestEmulated(t *testing.T) {
	m := sim.New()
	hw := &sau.SAU{Core: m, Veneers: mem.VeneerWindow}

	err := hw.Configure([]sau.Region{
		{Index: 0, Base: mem.NonSecureStart, Limit: mem.NonSecureStart + mem.NonSecureSize - 1, Enabled: true},
		{Index: 1, Base: mem.NonSecureRAMStart, Limit: mem.NonSecureRAMStart + mem.NonSecureRAMSize - 1, Enabled: true},
	})

	if err != nil {
		t.Fatal(err)
	}

	var calls int

	m.Map(&sim.Func{Name: "hello_from_ns", Addr: 0x00200850, Fn: func(uint32) uint32 {
		if m.Secure() {
			t.Error("Non-secure function running in Secure state")
		}

		calls++
		return 0
	}})

	m.SetVector(func(n int, _ uint32) {
		t.Errorf("unexpected exception %d", n)
		m.Halt()
	})

	g := &callgate.Gate{Core: m, Window: mem.CallWindow, Mailbox: mem.Mailbox}

	err = m.Run(func() {
		m.LoadImage(mem.Mailbox, 0x00200850)
		g.Trigger()

		m.LoadImage(mem.Mailbox, 0x00300000)
		g.Trigger()
	})

	if err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}

	if n := len(m.Events("blxns")); n != 1 {
		t.Errorf("expected 1 blxns, got %d", n)
	}

	if !m.Secure() {
		t.Error("gate did not return to Secure state")
	}
}
