// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package guest implements a fixed capacity table of Non-secure guest
// descriptors, addressed by index.
//
// Only the boot guest (index 0) is ever executed, the table is an extension
// point for multiple Non-secure images and no scheduling takes place.
package guest

import (
	"errors"
	"fmt"
	"sync"
)

// Slots is the table capacity.
const Slots = 4

// State represents a guest lifecycle state.
type State int

const (
	Loaded State = iota
	Running
	Halted
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Running:
		return "running"
	case Halted:
		return "halted"
	default:
		return "?"
	}
}

var (
	ErrFull  = errors.New("guest table full")
	ErrIndex = errors.New("invalid guest index")
)

// Guest represents a Non-secure image descriptor.
type Guest struct {
	Name string
	// Base is the image vector table address
	Base uint32
	// SP is the initial stack pointer
	SP uint32
	// Entry is the reset handler address
	Entry uint32

	State State
}

func (g *Guest) String() string {
	return fmt.Sprintf("%-12s base:%#.8x sp:%#.8x entry:%#.8x %s", g.Name, g.Base, g.SP, g.Entry, g.State)
}

// Table represents the guest arena.
type Table struct {
	sync.Mutex

	slots   [Slots]Guest
	used    [Slots]bool
	current int
}

// Add stores a guest descriptor in the first free slot.
func (t *Table) Add(g Guest) (index int, err error) {
	t.Lock()
	defer t.Unlock()

	for index = range t.slots {
		if !t.used[index] {
			t.slots[index] = g
			t.used[index] = true
			return
		}
	}

	return -1, ErrFull
}

// Remove frees a slot.
func (t *Table) Remove(index int) (err error) {
	t.Lock()
	defer t.Unlock()

	if err = t.check(index); err != nil {
		return
	}

	t.used[index] = false
	t.slots[index] = Guest{}

	return
}

func (t *Table) check(index int) error {
	if index < 0 || index >= Slots || !t.used[index] {
		return fmt.Errorf("%d: %w", index, ErrIndex)
	}

	return nil
}

// Get returns a copy of the guest descriptor at index.
func (t *Table) Get(index int) (g Guest, err error) {
	t.Lock()
	defer t.Unlock()

	if err = t.check(index); err != nil {
		return
	}

	return t.slots[index], nil
}

// SetState updates the state of the guest at index.
func (t *Table) SetState(index int, s State) (err error) {
	t.Lock()
	defer t.Unlock()

	if err = t.check(index); err != nil {
		return
	}

	t.slots[index].State = s

	return
}

// Current returns the index of the running guest.
func (t *Table) Current() int {
	t.Lock()
	defer t.Unlock()

	return t.current
}

// SetCurrent selects the running guest.
func (t *Table) SetCurrent(index int) (err error) {
	t.Lock()
	defer t.Unlock()

	if err = t.check(index); err != nil {
		return
	}

	t.current = index

	return
}

// Len returns the number of used slots.
func (t *Table) Len() (n int) {
	t.Lock()
	defer t.Unlock()

	for _, used := range t.used {
		if used {
			n++
		}
	}

	return
}

// Each calls fn on a copy of each used slot, in index order.
func (t *Table) Each(fn func(index int, g Guest)) {
	t.Lock()
	slots := t.slots
	used := t.used
	t.Unlock()

	for i := range slots {
		if used[i] {
			fn(i, slots[i])
		}
	}
}
