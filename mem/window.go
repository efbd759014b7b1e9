// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem describes the address space partitioning shared by the Secure
// and Non-secure worlds.
package mem

import (
	"fmt"
)

// Window represents an inclusive address range.
type Window struct {
	// Start is the first address within the window
	Start uint32 `toml:"start"`
	// End is the last address within the window
	End uint32 `toml:"end"`
}

// NewWindow returns the window of size bytes starting at start, size must be
// greater than zero.
func NewWindow(start uint32, size uint32) Window {
	return Window{
		Start: start,
		End:   start + size - 1,
	}
}

// Valid returns whether the window bounds are ordered.
func (w Window) Valid() bool {
	return w.Start <= w.End
}

// Size returns the window size in bytes, a full 4GB window returns 0.
func (w Window) Size() uint32 {
	return w.End - w.Start + 1
}

// Contains returns whether addr lies within the window.
func (w Window) Contains(addr uint32) bool {
	return addr >= w.Start && addr <= w.End
}

// Encloses returns whether the argument window lies entirely within the
// window.
func (w Window) Encloses(o Window) bool {
	return w.Contains(o.Start) && w.Contains(o.End)
}

// Overlaps returns whether the two windows share at least one address.
func (w Window) Overlaps(o Window) bool {
	return w.Start <= o.End && o.Start <= w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%#.8x-%#.8x", w.Start, w.End)
}
