// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"fmt"
)

// Func represents an emulated function mapped at a fixed address, following
// the AAPCS the single argument and the return value travel in r0.
type Func struct {
	Name   string
	Addr   uint32
	Size   uint32
	Secure bool
	Fn     func(r0 uint32) uint32
}

func (f *Func) String() string {
	return fmt.Sprintf("%#.8x %s", f.Addr, f.Name)
}

func lessFunc(a, b *Func) bool {
	return a.Addr < b.Addr
}

// Map places functions in the emulated address space, addresses are
// normalized to their instruction address.
func (m *Machine) Map(fns ...*Func) {
	m.Lock()
	defer m.Unlock()

	for _, f := range fns {
		f.Addr &^= 1
		m.funcs.ReplaceOrInsert(f)
	}
}

// Symbol returns the function enclosing addr.
func (m *Machine) Symbol(addr uint32) (f *Func, ok bool) {
	m.Lock()
	defer m.Unlock()

	m.funcs.DescendLessOrEqual(&Func{Addr: addr &^ 1}, func(i *Func) bool {
		f = i
		return false
	})

	if f == nil {
		return
	}

	size := f.Size

	if size == 0 {
		size = 2
	}

	return f, addr-f.Addr < size
}

// Symbols returns all mapped functions in address order.
func (m *Machine) Symbols() (fns []*Func) {
	m.Lock()
	defer m.Unlock()

	m.funcs.Ascend(func(f *Func) bool {
		fns = append(fns, f)
		return true
	})

	return
}

func (m *Machine) function(addr uint32) *Func {
	f, _ := m.funcs.Get(&Func{Addr: addr &^ 1})
	return f
}
