package nodeserver

import (
	"github.com/apiproxy/nodeserver/internal/core"
	"github.com/apiproxy/nodeserver/internal/sentinel"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrSpawn is returned by Start and Restart when the OS could not create
	// the server process. The underlying OS error is wrapped alongside it.
	ErrSpawn = core.ErrSpawn

	// ErrResourceDir is returned by Start and Restart when the AppHandle
	// cannot provide the installation directory.
	ErrResourceDir = core.ErrResourceDir

	// ErrServerLocked is returned by Start, only under WithInstanceLock, when
	// another host process already supervises a server for the same data
	// directory.
	ErrServerLocked = core.ErrServerLocked

	// ErrClosed is returned by Start and Restart after Close.
	ErrClosed = core.ErrClosed

	// ErrNotReady is returned by Restart with WithReadinessPolling when the
	// new server does not answer its health endpoint in time.
	ErrNotReady = core.ErrNotReady

	// ErrUnknownCommand is returned by Host.Invoke for command names it does
	// not route.
	ErrUnknownCommand = sentinel.Error("unknown command")
)
