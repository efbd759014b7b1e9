// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package semihosting implements the diagnostic channel of the target
// firmware over ARM semihosting, as served by debug probes and QEMU.
package semihosting

import (
	"sync"
)

// Semihosting operations
const (
	SYS_WRITEC = 0x03
	SYS_WRITE0 = 0x04
	SYS_EXIT   = 0x18
)

// ADP_Stopped_ApplicationExit is the SYS_EXIT reason for a normal exit.
const ADP_Stopped_ApplicationExit = 0x20026

// LineSize is the output buffer size, lines are flushed once full.
const LineSize = 128

// Host represents the semihosting call interface of the debug host.
type Host interface {
	// Write0 writes a NUL terminated string.
	Write0(s []byte)
	// Exit terminates the session with the given reason.
	Exit(reason uint32)
}

// Channel represents a line buffered semihosting output channel.
type Channel struct {
	sync.Mutex

	Host Host

	buf []byte
}

// Write implements io.Writer, output is sent to the host on each newline or
// once LineSize bytes are buffered.
func (ch *Channel) Write(p []byte) (int, error) {
	ch.Lock()
	defer ch.Unlock()

	for _, c := range p {
		ch.buf = append(ch.buf, c)

		if c == '\n' || len(ch.buf) >= LineSize-1 {
			ch.flush()
		}
	}

	return len(p), nil
}

// Flush sends any buffered output to the host.
func (ch *Channel) Flush() {
	ch.Lock()
	defer ch.Unlock()

	ch.flush()
}

func (ch *Channel) flush() {
	if len(ch.buf) == 0 {
		return
	}

	ch.Host.Write0(append(ch.buf, 0))
	ch.buf = ch.buf[:0]
}

// Exit flushes the channel and ends the semihosting session.
func (ch *Channel) Exit() {
	ch.Flush()
	ch.Host.Exit(ADP_Stopped_ApplicationExit)
}
