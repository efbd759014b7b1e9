// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
)

// ErrSymbol is returned when a symbol is missing from an ELF image.
var ErrSymbol = errors.New("symbol not found")

// LookupSym returns the named symbol of an ELF image.
func LookupSym(buf []byte, name string) (*elf.Symbol, error) {
	exe, err := elf.NewFile(bytes.NewReader(buf))

	if err != nil {
		return nil, err
	}

	syms, err := exe.Symbols()

	if err != nil {
		return nil, err
	}

	for _, sym := range syms {
		if sym.Name == name {
			return &sym, nil
		}
	}

	return nil, fmt.Errorf("%s, %w", name, ErrSymbol)
}

// CheckPlacement resolves each named symbol of an ELF image and passes its
// address and size to check, all failures are returned.
func CheckPlacement(buf []byte, names []string, check func(name string, addr uint32, size uint32) error) error {
	var errs []error

	for _, name := range names {
		sym, err := LookupSym(buf, name)

		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err = check(name, uint32(sym.Value), uint32(sym.Size)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
