// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-cmse/guest"
	"github.com/usbarmory/GoTEE-cmse/internal/system"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/trusted_os_sim/internal"
)

const defaultTraceLength = 20

func init() {
	Add(Cmd{
		Name:    "boot",
		Args:    1,
		Pattern: regexp.MustCompile(`^boot (\d+)$`),
		Syntax:  "<ms>",
		Help:    "boot the device for the given emulated time (0 until halt)",
		Fn:      bootCmd,
	})

	Add(Cmd{
		Name: "status",
		Help: "last boot outcome",
		Fn:   statusCmd,
	})

	Add(Cmd{
		Name: "sau",
		Help: "show SAU regions",
		Fn:   sauCmd,
	})

	Add(Cmd{
		Name: "gate",
		Help: "show call gate state",
		Fn:   gateCmd,
	})

	Add(Cmd{
		Name: "tick",
		Help: "show periodic trigger state",
		Fn:   tickCmd,
	})

	Add(Cmd{
		Name: "guests",
		Help: "show guest table",
		Fn:   guestsCmd,
	})

	Add(Cmd{
		Name:    "fault",
		Args:    1,
		Pattern: regexp.MustCompile(`^fault ?([[:xdigit:]]*)$`),
		Syntax:  "(hex address)",
		Help:    "read address from Non-secure World on next boot (default Secure SRAM)",
		Fn:      faultCmd,
	})

	Add(Cmd{
		Name: "nofault",
		Help: "clear Non-secure fault probe",
		Fn:   noFaultCmd,
	})

	Add(Cmd{
		Name:    "trace",
		Args:    1,
		Pattern: regexp.MustCompile(`^trace ?(\d*)$`),
		Syntax:  "(n)",
		Help:    "show last n core events",
		Fn:      traceCmd,
	})

	Add(Cmd{
		Name: "config",
		Help: "show configuration",
		Fn:   configCmd,
	})
}

func device(fn func(s *system.System, result error) (string, error)) (res string, err error) {
	err = gotee.Device(func(s *system.System, result error) (err error) {
		res, err = fn(s, result)
		return
	})

	return
}

func bootCmd(_ *term.Terminal, arg []string) (res string, err error) {
	ms, err := strconv.ParseUint(arg[0], 10, 32)

	if err != nil {
		return "", fmt.Errorf("invalid duration, %v", err)
	}

	// the outcome is reported by status
	_ = gotee.Boot(time.Duration(ms) * time.Millisecond)

	return statusCmd(nil, nil)
}

func statusCmd(_ *term.Terminal, _ []string) (string, error) {
	return device(func(s *system.System, result error) (string, error) {
		return gotee.Summary(s, result), nil
	})
}

func sauCmd(_ *term.Terminal, _ []string) (string, error) {
	return device(func(s *system.System, _ error) (string, error) {
		var buf bytes.Buffer

		hw := s.Monitor.SAU

		fmt.Fprintf(&buf, "enabled:%v regions:%d\n", hw.Enabled(), hw.Regions())

		for _, r := range hw.Read() {
			if r.Enabled {
				fmt.Fprintf(&buf, "%v\n", &r)
			}
		}

		return buf.String(), nil
	})
}

func gateCmd(_ *term.Terminal, _ []string) (string, error) {
	return device(func(s *system.System, _ error) (string, error) {
		g := s.Monitor.Gate
		return fmt.Sprintf("%v target:%#.8x", g, s.Machine.Peek(g.Mailbox)), nil
	})
}

func tickCmd(_ *term.Terminal, _ []string) (string, error) {
	return device(func(s *system.System, _ error) (string, error) {
		st := s.Monitor.SysTick

		return fmt.Sprintf("reload:%d period:%v ticks:%d overruns:%d",
			st.Reload(), st.Period(s.Machine.Frequency), st.Ticks(), st.Overruns()), nil
	})
}

func guestsCmd(_ *term.Terminal, _ []string) (string, error) {
	return device(func(s *system.System, _ error) (string, error) {
		var buf bytes.Buffer

		t := s.Monitor.Guests
		current := t.Current()

		t.Each(func(i int, g guest.Guest) {
			mark := " "

			if i == current {
				mark = "*"
			}

			fmt.Fprintf(&buf, "%s%d %v\n", mark, i, &g)
		})

		return buf.String(), nil
	})
}

func faultCmd(_ *term.Terminal, arg []string) (res string, err error) {
	addr := uint64(mem.SecureRAMStart)

	if len(arg[0]) > 0 {
		if addr, err = strconv.ParseUint(arg[0], 16, 32); err != nil {
			return "", fmt.Errorf("invalid address, %v", err)
		}
	}

	gotee.Overrides.Probe = uint32(addr)

	return fmt.Sprintf("Non-secure World will read %#.8x on next boot", addr), nil
}

func noFaultCmd(_ *term.Terminal, _ []string) (string, error) {
	gotee.Overrides.Probe = 0
	return "", nil
}

func traceCmd(_ *term.Terminal, arg []string) (string, error) {
	n := defaultTraceLength

	if len(arg[0]) > 0 {
		v, err := strconv.Atoi(arg[0])

		if err != nil {
			return "", fmt.Errorf("invalid length, %v", err)
		}

		n = v
	}

	return device(func(s *system.System, _ error) (string, error) {
		var buf bytes.Buffer

		trace := s.Machine.Trace()

		if n < len(trace) {
			trace = trace[len(trace)-n:]
		}

		for _, e := range trace {
			fmt.Fprintln(&buf, e)
		}

		return buf.String(), nil
	})
}

func configCmd(_ *term.Terminal, _ []string) (string, error) {
	var buf bytes.Buffer

	if gotee.Config == nil {
		return "", errors.New("no configuration")
	}

	if err := gotee.Config.Encode(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}
