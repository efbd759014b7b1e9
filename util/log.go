// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

const outputLimit = 1024
const flushChr = 0x0a // \n

// Output represents a console shared by the Secure and Non-secure worlds,
// the output of each world is buffered until a newline to avoid interleaved
// lines.
type Output struct {
	sync.Mutex

	// Writer receives flushed output, os.Stdout is used when nil
	Writer io.Writer
	// Term, when set, receives flushed output colored by world (green for
	// Secure, red for Non-secure) in place of Writer
	Term *term.Terminal

	secure    bytes.Buffer
	nonSecure bytes.Buffer
}

// Log buffers a character emitted by either world.
func (o *Output) Log(c byte, secure bool) {
	o.Lock()
	defer o.Unlock()

	buf := &o.nonSecure

	if secure {
		buf = &o.secure
	}

	buf.WriteByte(c)

	if c == flushChr || buf.Len() > outputLimit {
		o.flush(buf, secure)
	}
}

func (o *Output) flush(buf *bytes.Buffer, secure bool) {
	if buf.Len() == 0 {
		return
	}

	switch {
	case o.Term != nil:
		color := o.Term.Escape.Red

		if secure {
			color = o.Term.Escape.Green
		}

		o.Term.Write(color)
		o.Term.Write(buf.Bytes())
		o.Term.Write(o.Term.Escape.Reset)
	case o.Writer != nil:
		o.Writer.Write(buf.Bytes())
	default:
		os.Stdout.Write(buf.Bytes())
	}

	buf.Reset()
}

// Flush emits any pending partial line.
func (o *Output) Flush() {
	o.Lock()
	defer o.Unlock()

	o.flush(&o.secure, true)
	o.flush(&o.nonSecure, false)
}

type worldWriter struct {
	o      *Output
	secure bool
}

func (w worldWriter) Write(p []byte) (int, error) {
	for _, c := range p {
		w.o.Log(c, w.secure)
	}

	return len(p), nil
}

// World returns a writer for the output of either world.
func (o *Output) World(secure bool) io.Writer {
	return worldWriter{o: o, secure: secure}
}

// SetTerm redirects flushed output to a terminal, nil restores Writer.
func (o *Output) SetTerm(t *term.Terminal) {
	o.Lock()
	defer o.Unlock()

	o.Term = t
}
