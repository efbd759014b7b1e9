// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-cmse/internal/system"
	"github.com/usbarmory/GoTEE-cmse/trusted_os_sim/internal"
)

const maxBufferSize = 102400

func init() {
	Add(Cmd{
		Name:    "peek",
		Args:    2,
		Pattern: regexp.MustCompile(`^peek ([[:xdigit:]]+) (\d+)$`),
		Syntax:  "<hex offset> <size>",
		Help:    "memory display (debug access)",
		Fn:      memReadCmd,
	})

	Add(Cmd{
		Name:    "poke",
		Args:    2,
		Pattern: regexp.MustCompile(`^poke ([[:xdigit:]]+) ([[:xdigit:]]+)$`),
		Syntax:  "<hex offset> <hex value>",
		Help:    "memory write   (debug access)",
		Fn:      memWriteCmd,
	})

	Add(Cmd{
		Name:    "mailbox",
		Args:    1,
		Pattern: regexp.MustCompile(`^mailbox ([[:xdigit:]]+)$`),
		Syntax:  "<hex address>",
		Help:    "function published by the Non-secure World on next boot",
		Fn:      mailboxCmd,
	})
}

func memReadCmd(_ *term.Terminal, arg []string) (res string, err error) {
	addr, err := strconv.ParseUint(arg[0], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	size, err := strconv.ParseUint(arg[1], 10, 32)

	if err != nil {
		return "", fmt.Errorf("invalid size, %v", err)
	}

	if (addr%4) != 0 || (size%4) != 0 {
		return "", errors.New("only 32-bit aligned accesses are supported")
	}

	if size > maxBufferSize {
		return "", fmt.Errorf("size argument must be <= %d", maxBufferSize)
	}

	return device(func(s *system.System, _ error) (string, error) {
		buf := make([]byte, size)

		for i := uint64(0); i < size; i += 4 {
			binary.LittleEndian.PutUint32(buf[i:], s.Machine.Peek(uint32(addr+i)))
		}

		return hex.Dump(buf), nil
	})
}

func memWriteCmd(_ *term.Terminal, arg []string) (res string, err error) {
	addr, err := strconv.ParseUint(arg[0], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	val, err := strconv.ParseUint(arg[1], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid data, %v", err)
	}

	if (addr % 4) != 0 {
		return "", errors.New("only 32-bit aligned accesses are supported")
	}

	return device(func(s *system.System, _ error) (string, error) {
		s.Machine.Poke(uint32(addr), uint32(val))
		return "", nil
	})
}

func mailboxCmd(_ *term.Terminal, arg []string) (res string, err error) {
	addr, err := strconv.ParseUint(arg[0], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	gotee.Overrides.Callable = uint32(addr)

	return fmt.Sprintf("Non-secure World will publish %#.8x on next boot", addr), nil
}
