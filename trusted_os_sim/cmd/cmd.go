// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cmd implements the console commands of the emulated device.
package cmd

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"golang.org/x/term"
)

// CmdFn represents a command handler, arg holds the Pattern submatches.
type CmdFn func(term *term.Terminal, arg []string) (res string, err error)

// Cmd represents a console command.
type Cmd struct {
	Name    string
	Args    int
	Pattern *regexp.Regexp
	Syntax  string
	Help    string
	Fn      CmdFn
}

var (
	mux  sync.Mutex
	cmds = make(map[string]*Cmd)
)

// Add registers a console command.
func Add(cmd Cmd) {
	mux.Lock()
	defer mux.Unlock()

	if cmd.Pattern == nil {
		cmd.Pattern = regexp.MustCompile(`^` + regexp.QuoteMeta(cmd.Name) + `$`)
	}

	cmds[cmd.Name] = &cmd
}

// Help returns the list of registered commands.
func Help(term *term.Terminal) string {
	var names []string

	mux.Lock()
	defer mux.Unlock()

	for name := range cmds {
		names = append(names, name)
	}

	sort.Strings(names)

	var buf bytes.Buffer
	t := tabwriter.NewWriter(&buf, 16, 8, 0, '\t', tabwriter.TabIndent)

	for _, name := range names {
		cmd := cmds[name]
		fmt.Fprintf(t, "%s\t%s\t # %s\n", strings.TrimSpace(cmd.Name), cmd.Syntax, cmd.Help)
	}

	t.Flush()

	if term == nil {
		return buf.String()
	}

	return string(term.Escape.Cyan) + buf.String() + string(term.Escape.Reset)
}

func match(line string) (cmd *Cmd, arg []string) {
	mux.Lock()
	defer mux.Unlock()

	for _, c := range cmds {
		m := c.Pattern.FindStringSubmatch(line)

		if len(m) == c.Args+1 {
			return c, m[1:]
		}
	}

	return
}

// Handle executes a console command line and prints its result.
func Handle(term *term.Terminal, line string) (err error) {
	var res string

	line = strings.TrimSpace(line)

	if len(line) == 0 {
		return
	}

	cmd, arg := match(line)

	if cmd == nil {
		res = "unknown command, type `help`"
	} else {
		res, err = cmd.Fn(term, arg)
	}

	if len(res) > 0 {
		fmt.Fprintln(term, res)
	}

	return
}
