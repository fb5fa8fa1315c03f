package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apiproxy/nodeserver/internal/health"
	"github.com/apiproxy/nodeserver/internal/launch"
	"github.com/apiproxy/nodeserver/internal/lock"
	"github.com/apiproxy/nodeserver/internal/netutil"
	"github.com/apiproxy/nodeserver/internal/process"
	"github.com/apiproxy/nodeserver/internal/sentinel"
)

// processName labels the child in logs and errors.
const processName = "node-server"

// ErrSpawn is returned by Start when the OS could not create the server
// process (missing executable, permissions).
const ErrSpawn = sentinel.Error("failed to start server process")

// ErrResourceDir is returned by Start when the installation directory
// cannot be determined.
const ErrResourceDir = launch.ErrResourceDir

// ErrServerLocked is returned by Start when another host process already
// supervises a server for the same data directory.
const ErrServerLocked = lock.ErrLocked

// ErrClosed is returned by Start after Close.
const ErrClosed = sentinel.Error("supervisor is closed")

// ErrNotReady is returned by Restart with readiness polling enabled when the
// new server does not answer its health endpoint in time.
const ErrNotReady = sentinel.Error("server did not become ready")

// Info is a point-in-time view of the supervised server.
type Info struct {
	// Started reports whether the supervisor holds a process handle. It stays
	// true after the process dies on its own, until Stop.
	Started bool `json:"started"`
	// Running reports whether the held process is still alive.
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	// Generation counts successful spawns over the supervisor's lifetime.
	Generation uint64 `json:"generation"`
	// WorkDir, DataDir and DatabasePath describe the most recent launch and
	// are kept after Stop.
	WorkDir      string `json:"work_dir,omitempty"`
	DataDir      string `json:"data_dir,omitempty"`
	DatabasePath string `json:"database_path,omitempty"`
	Port         int    `json:"port"`
	HealthURL    string `json:"health_url"`
}

// Supervisor launches, stops and restarts a single backend server process.
// It is safe for concurrent use by multiple goroutines.
//
// Synchronization strategy:
//   - mu guards proc, env, fileLock and closed. Start, Stop and Close hold it
//     for their whole mutation, including the spawn and the kill.
//   - CheckStatus never takes mu; it only talks to the network.
//   - Restart takes mu only inside its Stop and Start steps, so its waits
//     do not block other callers.
type Supervisor struct {
	cfg    SupervisorConfig
	prober *health.Prober
	log    *slog.Logger

	mu       sync.Mutex
	proc     process.BaseProcess
	env      launch.Environment
	fileLock *lock.FileLock
	closed   bool

	closeOnce  sync.Once
	generation atomic.Uint64

	// sleep is the uncancellable wait used by Restart. Replaced in tests.
	sleep func(time.Duration)
}

// NewSupervisor creates a Supervisor. It performs no I/O.
//
// Panics if cfg.Validate reports any errors: invalid configuration is a
// programmer error, in the spirit of regexp.MustCompile.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("nodeserver: invalid supervisor config: %v", err))
	}
	log := Logger()
	prober, err := health.NewProber(health.Config{
		URL:     cfg.ResolvedHealthURL(),
		Timeout: cfg.HealthTimeout,
		Logger:  log,
	})
	if err != nil {
		panic(fmt.Sprintf("nodeserver: invalid health endpoint: %v", err))
	}
	return &Supervisor{
		cfg:    cfg,
		prober: prober,
		log:    log,
		proc:   process.NewBaseProcess(processName, log),
		sleep:  time.Sleep,
	}
}

// Start launches the server if it is not already running. A held process
// handle, even one whose process has since died, makes Start a no-op.
func (s *Supervisor) Start(ctx context.Context, res launch.ResourceResolver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.proc.IsStarted() {
		s.log.Debug("server already started", "pid", s.proc.Pid())
		return nil
	}

	env, err := launch.Prepare(ctx, s.launchConfig(), res)
	if err != nil {
		s.releaseLock()
		s.log.Error("failed to prepare server environment", "error", err)
		return err
	}
	s.log.Info("starting server", "dir", env.WorkDir, "port", env.Port, "database", env.DatabasePath)

	if err := s.acquireLock(env); err != nil {
		return err
	}

	if netutil.PortInUse(env.Port) {
		s.log.Warn("server port is already in use; the server may fail to bind", "port", env.Port)
	}

	cmd := env.Command(s.cfg.Command, s.cfg.Args...)
	if err := s.proc.Spawn(cmd); err != nil {
		s.releaseLock()
		s.log.Error("failed to start server", "error", err)
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	s.env = env
	s.generation.Add(1)
	return nil
}

// acquireLock takes the single-instance lock when configured. A lock still
// held from the Stop half of a Restart is kept. Only a lock held by someone
// else is fatal; a lock file that cannot be opened (the data directory could
// not be created) is logged and skipped, keeping data directory problems
// non-fatal.
func (s *Supervisor) acquireLock(env launch.Environment) error {
	if s.cfg.LockFile == "" || env.DataDir == "" || s.fileLock != nil {
		return nil
	}
	fl, err := lock.Acquire(filepath.Join(env.DataDir, s.cfg.LockFile), s.log)
	if errors.Is(err, lock.ErrLocked) {
		s.log.Error("server is already supervised elsewhere", "data_dir", env.DataDir)
		return err
	}
	if err != nil {
		s.log.Warn("single-instance lock unavailable; continuing without it", "error", err)
		return nil
	}
	s.fileLock = fl
	return nil
}

func (s *Supervisor) releaseLock() {
	s.fileLock.Release()
	s.fileLock = nil
}

// Stop kills the server, if any, and clears the handle. Kill failures are
// logged, never returned: after Stop the supervisor always holds no process.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	s.killLocked()
	s.releaseLock()
}

// killLocked kills the server but keeps the single-instance lock.
func (s *Supervisor) killLocked() {
	if !s.proc.IsStarted() {
		return
	}
	s.log.Info("stopping server", "pid", s.proc.Pid())
	if err := s.proc.Kill(); err != nil {
		s.log.Error("failed to kill server process", "error", err)
	}
}

// Close stops the server and rejects later Starts. Only the first call has
// any effect.
func (s *Supervisor) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		s.stopLocked()
	})
}

// CheckStatus reports whether the health endpoint answers 2xx within the
// health timeout. Unreachable, unhealthy and slow endpoints all report false;
// the error result is reserved and currently always nil.
func (s *Supervisor) CheckStatus(ctx context.Context) (bool, error) {
	return s.prober.Check(ctx), nil
}

// Restart stops the server, waits StopGrace, starts it again and waits
// StartGrace. A Start error is returned as is; the supervisor then holds no
// process. The waits ignore ctx. The single-instance lock, when enabled,
// stays held across the stop so no other host can claim it mid-restart.
func (s *Supervisor) Restart(ctx context.Context, res launch.ResourceResolver) error {
	s.log.Info("restarting server")
	s.mu.Lock()
	s.killLocked()
	s.mu.Unlock()
	s.sleep(s.cfg.StopGrace)

	if err := s.Start(ctx, res); err != nil {
		return err
	}

	if s.cfg.ReadinessPolling {
		return s.waitReady(ctx)
	}
	s.sleep(s.cfg.StartGrace)
	return nil
}

// waitReady polls the health endpoint until it answers, the process dies or
// ReadinessTimeout elapses.
func (s *Supervisor) waitReady(ctx context.Context) error {
	s.mu.Lock()
	exited := s.proc.Exited()
	s.mu.Unlock()

	err := process.WaitHealthy(ctx, process.HealthPoll{
		Interval: s.cfg.ReadinessInterval,
		Timeout:  s.cfg.ReadinessTimeout,
		URL:      s.prober.URL(),
	}, exited, s.prober.Check)
	if err != nil {
		s.log.Error("server did not become healthy after restart", "error", err)
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	s.log.Info("server is healthy", "url", s.prober.URL())
	return nil
}

// Info returns a snapshot of the supervised server.
func (s *Supervisor) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Info{
		Started:      s.proc.IsStarted(),
		Running:      s.proc.Running(),
		PID:          s.proc.Pid(),
		StartedAt:    s.proc.StartedAt(),
		Generation:   s.generation.Load(),
		WorkDir:      s.env.WorkDir,
		DataDir:      s.env.DataDir,
		DatabasePath: s.env.DatabasePath,
		Port:         s.cfg.Port,
		HealthURL:    s.prober.URL(),
	}
}

func (s *Supervisor) launchConfig() launch.Config {
	return launch.Config{
		Port:         s.cfg.Port,
		Mode:         s.cfg.Mode,
		DataDir:      s.cfg.DataDir,
		AppName:      s.cfg.AppName,
		DatabaseFile: s.cfg.DatabaseFile,
		ExtraEnv:     s.cfg.ExtraEnv,
		Logger:       s.log,
	}
}
