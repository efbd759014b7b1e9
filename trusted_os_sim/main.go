// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Host emulation of the Secure and Non-secure firmware pair.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/google/subcommands"
)

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stderr)
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&Run{}, "")
	subcommands.Register(&Check{}, "")
	subcommands.Register(&Console{}, "")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(int(subcommands.Execute(ctx)))
}
