// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"runtime"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-cmse/trusted_os_sim/cmd"
	"github.com/usbarmory/GoTEE-cmse/trusted_os_sim/internal"
	"github.com/usbarmory/GoTEE-cmse/util"
)

// Console implements subcommands.Command for the "console" command.
type Console struct {
	config string
	ssh    string
}

// Name implements subcommands.Command.Name.
func (*Console) Name() string {
	return "console"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Console) Synopsis() string {
	return "interactive console"
}

// Usage implements subcommands.Command.Usage.
func (*Console) Usage() string {
	return "console [flags] - interactive console on the terminal and, optionally, over SSH\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Console) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "TOML configuration file")
	f.StringVar(&c.ssh, "ssh", "", "SSH listening address (e.g. 127.0.0.1:2222)")
}

func handler(t *term.Terminal, line string) error {
	gotee.Output.SetTerm(t)
	return cmd.Handle(t, line)
}

// Execute implements subcommands.Command.Execute.
func (c *Console) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var local io.ReadWriter
	var listener net.Listener

	conf, err := loadConfig(c.config)

	if err != nil {
		log.Printf("SM could not load configuration, %v", err)
		return subcommands.ExitFailure
	}

	gotee.Config = conf
	gotee.Console = &util.Console{
		Banner:  fmt.Sprintf("SM %s/%s (%s) • emulated ARMv8-M Secure World", runtime.GOOS, runtime.GOARCH, runtime.Version()),
		Help:    cmd.Help(nil),
		Handler: handler,
	}

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)

		if err != nil {
			log.Printf("SM could not set terminal mode, %v", err)
			return subcommands.ExitFailure
		}

		defer term.Restore(fd, state)

		local = struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout}
	}

	if c.ssh != "" {
		if listener, err = net.Listen("tcp", c.ssh); err != nil {
			log.Printf("SM could not initialize SSH listener, %v", err)
			return subcommands.ExitFailure
		}
	}

	if local == nil && listener == nil {
		log.Printf("SM no terminal and no SSH address")
		return subcommands.ExitUsageError
	}

	if err = gotee.Serve(ctx, local, listener); err != nil {
		log.Printf("SM console error, %v", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
