//go:build !windows

package main

import (
	"os"
	"syscall"
)

var signalActions = map[os.Signal]action{
	syscall.SIGHUP:  actionRestart,
	syscall.SIGUSR1: actionStatus,
	syscall.SIGINT:  actionShutdown,
	syscall.SIGTERM: actionShutdown,
}
