//go:build windows

package main

import "os"

// Windows only delivers interrupts; restart and status have no signal.
var signalActions = map[os.Signal]action{
	os.Interrupt: actionShutdown,
}
