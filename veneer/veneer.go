// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package veneer manages the Secure entry points exposed to the Non-secure
// World through the Non-secure Callable window.
//
// Each entry occupies a fixed slot holding an SG instruction followed by a
// branch to its handler, the hardware only accepts Non-secure calls landing
// on such slots so no software check takes place on entry. Handlers receive
// the caller r0 and must treat it as untrusted.
package veneer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/mem"
)

// SlotSize is the veneer size (SG; B.W handler).
const SlotSize = 8

var (
	ErrFull      = errors.New("veneer window full")
	ErrDuplicate = errors.New("duplicate veneer")
	ErrNoEntry   = errors.New("not a veneer entry point")
	ErrPlacement = errors.New("veneer outside of Non-secure Callable window")
)

// Handler represents a Secure function reachable through a veneer.
type Handler func(arg uint32) uint32

// Entry represents an exposed Secure function.
type Entry struct {
	Name string
	// Addr is the veneer address, with the Thumb bit set as seen by
	// Non-secure callers.
	Addr uint32
	Fn   Handler

	calls atomic.Uint64
}

// Calls returns the number of times the entry was invoked.
func (e *Entry) Calls() uint64 {
	return e.calls.Load()
}

func (e *Entry) String() string {
	return fmt.Sprintf("%#.8x %-26s calls:%d", e.Addr, e.Name, e.calls.Load())
}

// Table represents the veneer slots of a Non-secure Callable window.
type Table struct {
	sync.Mutex

	// Window is the Non-secure Callable address range.
	Window mem.Window

	entries []*Entry
}

// NewTable returns an empty table for the given Non-secure Callable window.
func NewTable(w mem.Window) *Table {
	return &Table{
		Window: w,
	}
}

// Slots returns the table capacity.
func (t *Table) Slots() int {
	return int(t.Window.Size() / SlotSize)
}

// Add assigns the next free slot to a Secure function.
func (t *Table) Add(name string, fn Handler) (e *Entry, err error) {
	t.Lock()
	defer t.Unlock()

	for _, e := range t.entries {
		if e.Name == name {
			return nil, fmt.Errorf("%s: %w", name, ErrDuplicate)
		}
	}

	if len(t.entries) >= t.Slots() {
		return nil, fmt.Errorf("%s: %w", name, ErrFull)
	}

	e = &Entry{
		Name: name,
		Addr: cmse.FunctionAddress(t.Window.Start + uint32(len(t.entries))*SlotSize),
		Fn:   fn,
	}

	t.entries = append(t.entries, e)

	return
}

// Lookup returns the entry matching name.
func (t *Table) Lookup(name string) (*Entry, bool) {
	t.Lock()
	defer t.Unlock()

	for _, e := range t.entries {
		if e.Name == name {
			return e, true
		}
	}

	return nil, false
}

// Entries returns the exposed functions in slot order.
func (t *Table) Entries() []*Entry {
	t.Lock()
	defer t.Unlock()

	entries := make([]*Entry, len(t.entries))
	copy(entries, t.entries)

	return entries
}

// Index returns the slot number of a veneer address.
func (t *Table) Index(addr uint32) (index int, err error) {
	pc := cmse.InstructionAddress(addr)

	if !t.Window.Contains(pc) || (pc-t.Window.Start)%SlotSize != 0 {
		return -1, fmt.Errorf("%#.8x: %w", addr, ErrNoEntry)
	}

	index = int((pc - t.Window.Start) / SlotSize)

	t.Lock()
	defer t.Unlock()

	if index >= len(t.entries) {
		return -1, fmt.Errorf("%#.8x: %w", addr, ErrNoEntry)
	}

	return
}

// Enter dispatches a call landed on slot index.
func (t *Table) Enter(index int, arg uint32) (ret uint32, err error) {
	t.Lock()

	if index < 0 || index >= len(t.entries) {
		t.Unlock()
		return 0, fmt.Errorf("slot %d: %w", index, ErrNoEntry)
	}

	e := t.entries[index]
	e.calls.Add(1)
	t.Unlock()

	return e.Fn(arg), nil
}

// Call dispatches a call landed on a veneer address.
func (t *Table) Call(addr uint32, arg uint32) (ret uint32, err error) {
	index, err := t.Index(addr)

	if err != nil {
		return
	}

	return t.Enter(index, arg)
}

// Check verifies that a symbol address, as placed by the linker, lies within
// the Non-secure Callable window.
func (t *Table) Check(name string, addr uint32, size uint32) error {
	start := cmse.InstructionAddress(addr)

	if size == 0 {
		size = 1
	}

	if !t.Window.Encloses(mem.NewWindow(start, size)) {
		return fmt.Errorf("%s %#.8x-%#.8x, window %v: %w", name, start, start+size-1, t.Window, ErrPlacement)
	}

	return nil
}
