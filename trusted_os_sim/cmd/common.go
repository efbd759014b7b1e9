// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-cmse/internal/system"
	"github.com/usbarmory/GoTEE-cmse/trusted_os_sim/internal"
)

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn:   helpCmd,
	})

	Add(Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn:      exitCmd,
	})

	Add(Cmd{
		Name: "stack",
		Help: "core state and active exceptions when the device stopped",
		Fn:   stackCmd,
	})

	Add(Cmd{
		Name: "frames",
		Help: "exception frames captured by fault diagnostics",
		Fn:   framesCmd,
	})
}

func helpCmd(term *term.Terminal, _ []string) (string, error) {
	return Help(term), nil
}

func exitCmd(_ *term.Terminal, _ []string) (string, error) {
	gotee.Output.Flush()
	return "logout", io.EOF
}

func stackCmd(_ *term.Terminal, _ []string) (string, error) {
	return device(func(s *system.System, _ error) (string, error) {
		return s.Machine.Stopped().String(), nil
	})
}

func framesCmd(_ *term.Terminal, _ []string) (string, error) {
	return device(func(s *system.System, _ error) (string, error) {
		var buf bytes.Buffer

		snapshots := s.Monitor.Fault.Snapshots()

		if len(snapshots) == 0 {
			return "no exception frames", nil
		}

		for i, snapshot := range snapshots {
			fmt.Fprintf(&buf, "#%d\n", i)
			snapshot.Report(&buf, s.Monitor.Fault.Symbol)
		}

		return buf.String(), nil
	})
}
