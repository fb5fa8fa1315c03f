package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SupervisorConfig holds configuration for a Supervisor.
//
// All fields are immutable after NewSupervisor returns; the supervisor reads
// them without synchronization.
type SupervisorConfig struct {
	// Command and Args launch the server, relative to the resource directory.
	Command string
	Args    []string
	// ExtraEnv is appended to the child environment after the server
	// variables, key=value.
	ExtraEnv []string

	// Port is exported to the child as PORT and used to derive HealthURL.
	Port int
	// Mode is exported to the child as NODE_ENV.
	Mode string

	// DataDir overrides the platform data directory. When empty the data
	// directory is <platform data dir>/<AppName>.
	DataDir      string
	AppName      string
	DatabaseFile string

	// HealthURL overrides the endpoint derived from Port and HealthPath.
	HealthURL     string
	HealthPath    string
	HealthTimeout time.Duration

	// StopGrace and StartGrace are the fixed waits Restart inserts after
	// stopping and after starting the server.
	StopGrace  time.Duration
	StartGrace time.Duration

	// ReadinessPolling replaces the post-start wait with polling HealthURL
	// every ReadinessInterval, giving up after ReadinessTimeout.
	ReadinessPolling  bool
	ReadinessInterval time.Duration
	ReadinessTimeout  time.Duration

	// LockFile, when non-empty, names an advisory lock file inside the data
	// directory that keeps a second host from launching its own server.
	// Empty by default.
	LockFile string
}

// Validate checks that all fields hold usable values and returns every
// problem found, joined.
func (c SupervisorConfig) Validate() error {
	var errs []error

	if c.Command == "" {
		errs = append(errs, errors.New("server command must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Mode == "" {
		errs = append(errs, errors.New("runtime mode must not be empty"))
	}
	if c.DataDir == "" && c.AppName == "" {
		errs = append(errs, errors.New("either data directory or app name must be set"))
	}
	if c.DatabaseFile == "" {
		errs = append(errs, errors.New("database file name must not be empty"))
	}
	if strings.ContainsAny(c.DatabaseFile, `/\`) {
		errs = append(errs, fmt.Errorf("database file name must not contain a path separator, got %q", c.DatabaseFile))
	}
	if c.HealthURL == "" && !strings.HasPrefix(c.HealthPath, "/") {
		errs = append(errs, fmt.Errorf("health path must start with /, got %q", c.HealthPath))
	}
	if c.HealthTimeout <= 0 {
		errs = append(errs, fmt.Errorf("health timeout must be greater than 0, got %s", c.HealthTimeout))
	}
	if c.StopGrace < 0 {
		errs = append(errs, fmt.Errorf("stop grace period must not be negative, got %s", c.StopGrace))
	}
	if c.StartGrace < 0 {
		errs = append(errs, fmt.Errorf("start grace period must not be negative, got %s", c.StartGrace))
	}
	if c.ReadinessPolling {
		if c.ReadinessInterval <= 0 {
			errs = append(errs, fmt.Errorf("readiness interval must be greater than 0, got %s", c.ReadinessInterval))
		}
		if c.ReadinessTimeout <= 0 {
			errs = append(errs, fmt.Errorf("readiness timeout must be greater than 0, got %s", c.ReadinessTimeout))
		}
	}
	if strings.ContainsAny(c.LockFile, `/\`) {
		errs = append(errs, fmt.Errorf("lock file name must not contain a path separator, got %q", c.LockFile))
	}

	return errors.Join(errs...)
}

// ResolvedHealthURL returns HealthURL, or http://localhost:<Port><HealthPath>.
func (c SupervisorConfig) ResolvedHealthURL() string {
	if c.HealthURL != "" {
		return c.HealthURL
	}
	return fmt.Sprintf("http://localhost:%d%s", c.Port, c.HealthPath)
}
