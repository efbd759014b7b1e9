// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/usbarmory/GoTEE-cmse/util"
	"github.com/usbarmory/GoTEE-cmse/veneer"
)

// Check implements subcommands.Command for the "check" command.
type Check struct {
	config  string
	elf     string
	symbols string
}

// Name implements subcommands.Command.Name.
func (*Check) Name() string {
	return "check"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Check) Synopsis() string {
	return "validate configuration and veneer placement"
}

// Usage implements subcommands.Command.Usage.
func (*Check) Usage() string {
	return "check [flags] - validate the region table and, given a Secure image, its veneer placement\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Check) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "TOML configuration file")
	f.StringVar(&c.elf, "elf", "", "Secure firmware ELF image")
	f.StringVar(&c.symbols, "symbol", strings.Join(veneer.Names, ","), "comma separated veneer symbols")
}

// Execute implements subcommands.Command.Execute.
func (c *Check) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, err := loadConfig(c.config)

	if err != nil {
		log.Printf("SM could not load configuration, %v", err)
		return subcommands.ExitFailure
	}

	if err = conf.Validate(); err != nil {
		log.Printf("SM invalid configuration, %v", err)
		return subcommands.ExitFailure
	}

	for _, r := range conf.Regions {
		log.Printf("SM region %v", &r)
	}

	if c.elf == "" {
		return subcommands.ExitSuccess
	}

	buf, err := os.ReadFile(c.elf)

	if err != nil {
		log.Printf("SM could not read image, %v", err)
		return subcommands.ExitFailure
	}

	table := veneer.NewTable(conf.Veneers)

	if err = util.CheckPlacement(buf, strings.Split(c.symbols, ","), table.Check); err != nil {
		log.Printf("SM invalid veneer placement, %v", err)
		return subcommands.ExitFailure
	}

	log.Printf("SM veneers %s within %v", c.symbols, conf.Veneers)

	return subcommands.ExitSuccess
}
