// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package nonsecure

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/usbarmory/GoTEE-cmse/mem"
)

// testWorld records the operations of the program.
type testWorld struct {
	bytes.Buffer

	ops []string
}

func (w *testWorld) Load(addr uint32) uint32 {
	w.ops = append(w.ops, fmt.Sprintf("load %#.8x", addr))
	return 0
}

func (w *testWorld) Store(addr uint32, val uint32) {
	w.ops = append(w.ops, fmt.Sprintf("store %#.8x %#.8x", addr, val))
}

func (w *testWorld) CallSecure(addr uint32, arg uint32) uint32 {
	w.ops = append(w.ops, fmt.Sprintf("sg %#.8x", addr))
	return 3
}

func (w *testWorld) Spin(cycles uint64) {
	w.ops = append(w.ops, fmt.Sprintf("spin %d", cycles))
}

func TestHeader(t *testing.T) {
	sp, entry := Header()

	if sp != mem.NonSecureRAMStart+mem.NonSecureRAMSize || sp%8 != 0 {
		t.Errorf("invalid stack pointer %#.8x", sp)
	}

	if entry&1 != 1 || !mem.NonSecureWindow.Contains(entry) {
		t.Errorf("invalid entry %#.8x", entry)
	}

	if !mem.CallWindow.Contains(Callable) {
		t.Errorf("callable %#.8x outside of call window", Callable)
	}
}

func TestProgram(t *testing.T) {
	w := &testWorld{}

	p := &Program{
		World:      w,
		Mailbox:    mem.Mailbox,
		Callable:   Callable,
		Entry:      mem.VeneerStart + 1,
		CurrentVM:  mem.VeneerStart + 8 + 1,
		Workload:   1000,
		Iterations: 2,
		Probe:      mem.SecureRAMStart,
	}

	p.Main()

	want := []string{
		"store 0x00200804 0x00200851",
		"sg 0x001fff01",
		"sg 0x001fff09",
		"load 0x20030000",
		"spin 1000",
		"spin 1000",
	}

	if diff := cmp.Diff(want, w.ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}

	if p.VM() != 3 {
		t.Errorf("got guest %d, want 3", p.VM())
	}

	wantOut := "Hello from nonsecure!\n" +
		"running as guest 3\n" +
		"reading 0x20030000\n" +
		"Hello from nonsecureloop!\n" +
		"Hello from nonsecureloop!\n"

	if diff := cmp.Diff(wantOut, w.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCallback(t *testing.T) {
	w := &testWorld{}
	p := &Program{World: w}

	p.Callback()
	p.Callback()

	if p.Callbacks() != 2 {
		t.Errorf("got %d callbacks, want 2", p.Callbacks())
	}

	if w.String() != "Hello from cmse_nonsecure_call!\nHello from cmse_nonsecure_call!\n" {
		t.Errorf("unexpected output %q", w.String())
	}
}
