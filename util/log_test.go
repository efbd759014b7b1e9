// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestOutput(t *testing.T) {
	var buf bytes.Buffer

	o := &Output{Writer: &buf}
	s := o.World(true)
	ns := o.World(false)

	fmt.Fprint(s, "Hello ")
	fmt.Fprint(ns, "Hello from nonsecure!\n")
	fmt.Fprint(s, "from secure!\n")
	fmt.Fprint(ns, "partial")

	if got, want := buf.String(), "Hello from nonsecure!\nHello from secure!\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	o.Flush()

	if !strings.HasSuffix(buf.String(), "partial") {
		t.Errorf("partial line not flushed, got %q", buf.String())
	}
}

func TestOutputLimit(t *testing.T) {
	var buf bytes.Buffer

	o := &Output{Writer: &buf}

	for i := 0; i <= outputLimit; i++ {
		o.Log('x', false)
	}

	if buf.Len() != outputLimit+1 {
		t.Errorf("got %d bytes, want %d", buf.Len(), outputLimit+1)
	}
}
