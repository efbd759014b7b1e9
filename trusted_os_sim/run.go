// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"github.com/usbarmory/GoTEE-cmse/config"
	"github.com/usbarmory/GoTEE-cmse/internal/sim"
	"github.com/usbarmory/GoTEE-cmse/internal/system"
	"github.com/usbarmory/GoTEE-cmse/mem"
	"github.com/usbarmory/GoTEE-cmse/trusted_os_sim/internal"
)

// hexFlag represents a 32-bit address flag accepting any Go integer syntax.
type hexFlag uint32

func (h *hexFlag) String() string {
	return fmt.Sprintf("%#.8x", uint32(*h))
}

func (h *hexFlag) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 32)

	if err != nil {
		return err
	}

	*h = hexFlag(v)

	return nil
}

func loadConfig(path string) (conf *config.Config, err error) {
	if path == "" {
		return config.Default(), nil
	}

	return config.LoadFile(path)
}

// Run implements subcommands.Command for the "run" command.
type Run struct {
	ms       uint
	config   string
	mailbox  hexFlag
	fault    bool
	loops    int
	showStat bool
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "boot the emulated device"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return "run [flags] - boot the emulated device and run it for the given time\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.UintVar(&r.ms, "ms", 100, "emulated time in milliseconds, 0 runs until halt")
	f.StringVar(&r.config, "config", "", "TOML configuration file")
	f.Var(&r.mailbox, "mailbox", "function published by the Non-secure World (default hello_from_ns)")
	f.BoolVar(&r.fault, "fault", false, "read Secure SRAM from the Non-secure World")
	f.IntVar(&r.loops, "loops", 0, "bound the Non-secure main loop iterations")
	f.BoolVar(&r.showStat, "stat", true, "print a summary on exit")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf, err := loadConfig(r.config)

	if err != nil {
		log.Printf("SM could not load configuration, %v", err)
		return subcommands.ExitFailure
	}

	gotee.Config = conf
	gotee.Output.Writer = os.Stdout
	gotee.Overrides.Callable = uint32(r.mailbox)
	gotee.Overrides.Iterations = r.loops

	if r.fault {
		gotee.Overrides.Probe = mem.SecureRAMStart
	}

	err = gotee.Boot(time.Duration(r.ms) * time.Millisecond)

	if r.showStat {
		_ = gotee.Device(func(s *system.System, result error) error {
			log.Printf("SM %s", gotee.Summary(s, result))
			return nil
		})
	}

	switch {
	case err == nil:
		return subcommands.ExitSuccess
	case r.fault && errors.Is(err, sim.ErrHalted):
		// expected outcome of the Non-secure probe
		return subcommands.ExitSuccess
	default:
		log.Printf("SM %v", err)
		return subcommands.ExitFailure
	}
}
