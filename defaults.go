package nodeserver

import "time"

// Default configuration values for New and NewHost.
// These constants are exported so callers can build configurations relative
// to them (e.g., DefaultPort + 1 for a second profile).
const (
	// DefaultPort is the TCP port the server listens on, exported to it as
	// PORT.
	DefaultPort = 3000

	// DefaultCommand is the executable used to run the server, looked up in
	// PATH.
	DefaultCommand = "node"

	// DefaultEntryPoint is the server script, relative to the resource
	// directory.
	DefaultEntryPoint = "dist/server.js"

	// DefaultMode is exported to the server as NODE_ENV.
	DefaultMode = "production"

	// DefaultAppName is the directory created under the platform data
	// directory for the server database.
	DefaultAppName = "api-proxy"

	// DefaultDatabaseFile is the SQLite file name inside the data directory,
	// exported to the server as DATABASE_PATH.
	DefaultDatabaseFile = "api-proxy.db"

	// DefaultHealthPath is the endpoint polled by CheckStatus.
	DefaultHealthPath = "/api/health"

	// DefaultHealthTimeout bounds a single health probe, connection and
	// response included.
	DefaultHealthTimeout = 5 * time.Second

	// DefaultRestartStopGrace is how long Restart waits after killing the
	// server, giving the OS time to free the port.
	DefaultRestartStopGrace = 2 * time.Second

	// DefaultRestartStartGrace is how long Restart waits after spawning the
	// new server before it returns.
	DefaultRestartStartGrace = 3 * time.Second

	// DefaultSetupDelay is how long Host.Setup waits after a successful start
	// so the UI does not load before the server listens.
	DefaultSetupDelay = 3 * time.Second

	// DefaultReadinessInterval and DefaultReadinessTimeout apply to
	// WithReadinessPolling callers that pass zero values.
	DefaultReadinessInterval = 250 * time.Millisecond
	DefaultReadinessTimeout  = 30 * time.Second

	// DefaultLockFile is the single-instance lock created in the data
	// directory under WithInstanceLock.
	DefaultLockFile = "server.lock"
)
