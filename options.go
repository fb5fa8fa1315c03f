package nodeserver

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive(name string, v time.Duration) {
	if v <= 0 {
		panic(fmt.Sprintf("nodeserver: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonNegative panics if v < 0 with a descriptive message.
func requireNonNegative(name string, v time.Duration) {
	if v < 0 {
		panic(fmt.Sprintf("nodeserver: %s must not be negative, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("nodeserver: %s must not be empty", name))
	}
}

// requireFileName panics if s is empty or contains a path separator.
func requireFileName(name, s string) {
	requireNonEmpty(name, s)
	if strings.ContainsAny(s, `/\`) {
		panic(fmt.Sprintf("nodeserver: %s must be a bare file name, got %q", name, s))
	}
}

// Option configures a Supervisor during construction via New.
//
// Several With* functions panic on invalid input (empty commands, ports out
// of range, non-positive timeouts). Option values are typically constants,
// so an invalid value is a programmer error; the pattern mirrors
// [regexp.MustCompile].
type Option func(*supervisorConfig)

// WithCommand sets the executable that runs the server. Relative paths
// containing a separator resolve against the resource directory; bare names
// are looked up in PATH.
//
// Default: "node".
//
// Panics if command is empty.
func WithCommand(command string) Option {
	requireNonEmpty("server command", command)
	return func(c *supervisorConfig) {
		c.Command = command
	}
}

// WithArgs replaces the arguments passed to the server command.
//
// Default: ["dist/server.js"].
func WithArgs(args ...string) Option {
	cp := append([]string(nil), args...)
	return func(c *supervisorConfig) {
		c.Args = cp
	}
}

// WithPort sets the port exported to the server as PORT. Unless WithHealthURL
// is used, the health endpoint follows the port.
//
// Default: 3000.
//
// Panics if port is outside 1..65535.
func WithPort(port int) Option {
	if port <= 0 || port > 65535 {
		panic(fmt.Sprintf("nodeserver: port must be between 1 and 65535, got %d", port))
	}
	return func(c *supervisorConfig) {
		c.Port = port
	}
}

// WithMode sets the value exported to the server as NODE_ENV.
//
// Default: "production".
//
// Panics if mode is empty.
func WithMode(mode string) Option {
	requireNonEmpty("runtime mode", mode)
	return func(c *supervisorConfig) {
		c.Mode = mode
	}
}

// WithDataDir sets the directory that holds the server database, bypassing
// the platform data directory lookup.
//
// Panics if dir is empty.
func WithDataDir(dir string) Option {
	requireNonEmpty("data directory", dir)
	return func(c *supervisorConfig) {
		c.DataDir = dir
	}
}

// WithAppName sets the directory created under the platform data directory.
// Ignored when WithDataDir is used.
//
// Default: "api-proxy".
//
// Panics if name is empty or contains a path separator.
func WithAppName(name string) Option {
	requireFileName("app name", name)
	return func(c *supervisorConfig) {
		c.AppName = name
	}
}

// WithDatabaseFile sets the database file name inside the data directory.
//
// Default: "api-proxy.db".
//
// Panics if name is empty or contains a path separator.
func WithDatabaseFile(name string) Option {
	requireFileName("database file name", name)
	return func(c *supervisorConfig) {
		c.DatabaseFile = name
	}
}

// WithHealthURL sets the full URL probed by CheckStatus, replacing the
// http://localhost:<port><path> default.
//
// Panics if rawURL is not an absolute http or https URL.
func WithHealthURL(rawURL string) Option {
	requireNonEmpty("health URL", rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		panic(fmt.Sprintf("nodeserver: health URL must be an absolute http(s) URL, got %q", rawURL))
	}
	return func(c *supervisorConfig) {
		c.HealthURL = rawURL
	}
}

// WithHealthPath sets the path of the health endpoint on the server port.
//
// Default: "/api/health".
//
// Panics if path does not start with "/".
func WithHealthPath(path string) Option {
	if !strings.HasPrefix(path, "/") {
		panic(fmt.Sprintf("nodeserver: health path must start with /, got %q", path))
	}
	return func(c *supervisorConfig) {
		c.HealthPath = path
	}
}

// WithHealthTimeout bounds a single health probe.
//
// Default: 5s.
//
// Panics if d <= 0.
func WithHealthTimeout(d time.Duration) Option {
	requirePositive("health timeout", d)
	return func(c *supervisorConfig) {
		c.HealthTimeout = d
	}
}

// WithRestartGrace sets the fixed waits Restart inserts after stopping and
// after starting the server. Zero disables a wait.
//
// Default: 2s and 3s.
//
// Panics if either value is negative.
func WithRestartGrace(afterStop, afterStart time.Duration) Option {
	requireNonNegative("stop grace period", afterStop)
	requireNonNegative("start grace period", afterStart)
	return func(c *supervisorConfig) {
		c.StopGrace = afterStop
		c.StartGrace = afterStart
	}
}

// WithReadinessPolling makes Restart poll the health endpoint every interval
// instead of sleeping after the start, returning ErrNotReady when the server
// does not answer within timeout. Zero values select
// DefaultReadinessInterval and DefaultReadinessTimeout.
//
// Panics if either value is negative.
func WithReadinessPolling(interval, timeout time.Duration) Option {
	requireNonNegative("readiness interval", interval)
	requireNonNegative("readiness timeout", timeout)
	if interval == 0 {
		interval = DefaultReadinessInterval
	}
	if timeout == 0 {
		timeout = DefaultReadinessTimeout
	}
	return func(c *supervisorConfig) {
		c.ReadinessPolling = true
		c.ReadinessInterval = interval
		c.ReadinessTimeout = timeout
	}
}

// WithExtraEnv appends key=value pairs to the server environment. They are
// added after PORT, NODE_ENV and DATABASE_PATH, so they can override them.
//
// Panics if an entry has no "=" or an empty key.
func WithExtraEnv(kv ...string) Option {
	for _, e := range kv {
		if k, _, ok := strings.Cut(e, "="); !ok || k == "" {
			panic(fmt.Sprintf("nodeserver: environment entry must be KEY=VALUE, got %q", e))
		}
	}
	cp := append([]string(nil), kv...)
	return func(c *supervisorConfig) {
		c.ExtraEnv = append(c.ExtraEnv, cp...)
	}
}

// WithInstanceLock makes Start take an advisory lock on DefaultLockFile in
// the data directory, so a second host sharing that directory fails with
// ErrServerLocked instead of launching its own server. The lock is held
// until Stop or Close, including across Restart.
//
// Default: off. Hosts sharing a data directory each start their server.
func WithInstanceLock() Option {
	return func(c *supervisorConfig) {
		c.LockFile = DefaultLockFile
	}
}
