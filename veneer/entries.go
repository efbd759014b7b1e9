// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package veneer

import (
	"fmt"
	"io"

	"github.com/usbarmory/GoTEE-cmse/guest"
)

// Secure functions exposed to the Non-secure World.
const (
	// NonSecureEntry emits a greeting on the Secure diagnostic channel.
	NonSecureEntry = "nonsecure_entry_function"
	// CurrentVM returns the index of the running guest.
	CurrentVM = "secure_current_vm"
)

// Names lists the exposed Secure functions in slot order.
var Names = []string{NonSecureEntry, CurrentVM}

// Greeting returns the NonSecureEntry handler, the argument is ignored.
func Greeting(out io.Writer) Handler {
	return func(_ uint32) uint32 {
		fmt.Fprintln(out, "Hello cmse-nonsecure-entry!")
		return 0
	}
}

// Current returns the CurrentVM handler, the argument is ignored.
func Current(guests *guest.Table) Handler {
	return func(_ uint32) uint32 {
		return uint32(guests.Current())
	}
}

// Standard registers the Secure functions exposed by this firmware, in fixed
// slot order so that their addresses are stable across revisions.
func (t *Table) Standard(out io.Writer, guests *guest.Table) (err error) {
	if _, err = t.Add(NonSecureEntry, Greeting(out)); err != nil {
		return
	}

	_, err = t.Add(CurrentVM, Current(guests))

	return
}
