package nodeserver

import "context"

// AppHandle gives the supervisor access to the host application. The server
// runs from the directory ResourceDir returns.
type AppHandle interface {
	ResourceDir() (string, error)
}

// Supervisor owns the backend server process of one host application.
//
// Callers must follow this lifecycle ordering:
//
//	New → Start → CheckStatus/Restart/Info (repeatable) → Close
//
// All methods are safe for concurrent use. Start and Stop are serialized, so
// concurrent callers never produce two live servers.
type Supervisor interface {
	// Start launches the server unless one is already held, in which case it
	// returns nil. A server that died on its own is still held: use Restart
	// to replace it.
	//
	// Returns an error matching ErrResourceDir when app cannot resolve its
	// resource directory, ErrSpawn when the process could not be created,
	// ErrServerLocked when WithInstanceLock is set and another host supervises
	// the same data directory, and ErrClosed after Close.
	Start(ctx context.Context, app AppHandle) error

	// Stop kills the server, if any. Failures are logged, never returned.
	Stop()

	// Restart stops the server, waits, starts it again and waits again.
	// Start errors are returned unchanged. The waits ignore ctx.
	Restart(ctx context.Context, app AppHandle) error

	// CheckStatus reports whether the health endpoint answers with a 2xx
	// status within the health timeout. Probe failures report false; the
	// error result is always nil. Concurrent calls share one request.
	CheckStatus(ctx context.Context) (bool, error)

	// Info returns a snapshot of the supervised server.
	Info() ServerInfo

	// Close stops the server and makes later Starts fail with ErrClosed.
	// Only the first call has any effect.
	Close()
}
