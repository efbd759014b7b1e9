// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gotee

import (
	"context"
	"io"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/usbarmory/GoTEE-cmse/util"
)

// Console is the interactive console instance.
var Console *util.Console

// Serve runs the console on a local terminal connection and, when a listener
// is given, over SSH. It returns once the local session ends or ctx is done,
// a nil local connection serves SSH only.
func Serve(ctx context.Context, local io.ReadWriter, listener net.Listener) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if listener != nil {
		if err = Console.Start(listener); err != nil {
			return
		}

		g.Go(func() error {
			<-ctx.Done()
			return listener.Close()
		})
	}

	if local != nil {
		g.Go(func() error {
			defer cancel()

			Console.Serve(local)
			Output.SetTerm(nil)

			return nil
		})
	}

	return g.Wait()
}
