// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
)

// shutdownRequestChannel is used to initiate shutdown from one of the
// subsystems using the same code path as when an interrupt signal is
// received.
var shutdownRequestChannel = make(chan struct{})

// interruptSignals defines the default signals to catch in order to do a
// proper shutdown. This may be extended during init depending on the
// platform.
var interruptSignals = []os.Signal{os.Interrupt}

// shutdownListener listens for OS signals such as SIGINT (Ctrl+C) and
// shutdown requests from shutdownRequestChannel. It returns a context that
// is canceled when either occurs.
func shutdownListener() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		select {
		case sig := <-interruptChannel:
			lynxLog.Infof("Received signal (%s).  Shutting down...", sig)

		case <-shutdownRequestChannel:
			lynxLog.Infof("Shutdown requested.  Shutting down...")
		}
		cancel()

		// Listen for repeated signals and display a message so the user
		// knows the shutdown is in progress and the process is not hung.
		for {
			select {
			case sig := <-interruptChannel:
				lynxLog.Infof("Received signal (%s).  Already shutting down...", sig)

			case <-shutdownRequestChannel:
				lynxLog.Info("Shutdown requested.  Already shutting down...")
			}
		}
	}()

	return ctx
}

// shutdownRequested returns true when the context returned by
// shutdownListener has been canceled.
func shutdownRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}

	return false
}
