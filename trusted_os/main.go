// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && cortexm

// Secure World firmware: it partitions memory, publishes the Non-secure
// Callable veneers, arms the periodic call gate and switches to the
// Non-secure image, which it never returns to.
package main

import (
	"log"
	"runtime"

	"github.com/usbarmory/GoTEE-cmse/cmse/cortexm"
	"github.com/usbarmory/GoTEE-cmse/config"
	"github.com/usbarmory/GoTEE-cmse/internal/semihosting"
	"github.com/usbarmory/GoTEE-cmse/monitor"
)

var (
	core    = &cortexm.Core{}
	console = &semihosting.Channel{Host: &semihosting.Probe{}}
	mon     *monitor.Monitor
)

func init() {
	log.SetFlags(0)
	log.SetOutput(console)

	log.Printf("SM %s/%s (%s) • TEE security monitor (Secure World)", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func main() {
	mon = monitor.New(core, config.Default(), console)

	// never returns
	mon.Start()
}
