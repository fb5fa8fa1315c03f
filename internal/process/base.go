package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/apiproxy/nodeserver/internal/sentinel"
)

// ErrAlreadyStarted is returned by Spawn when the handle already owns a
// process. Kill it first.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when Spawn is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when Spawn is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// BaseProcess is the handle to at most one running child process.
//
// BaseProcess is not safe for concurrent use; the owning supervisor
// serializes every call under its own mutex.
type BaseProcess struct {
	cmd       *exec.Cmd
	waitDone  <-chan error    // receives the single cmd.Wait result
	exited    <-chan struct{} // closed once the process has been reaped
	startedAt time.Time
	name      string
	log       *slog.Logger
}

// NewBaseProcess returns an empty handle. name shows up in log lines and
// error messages. A nil logger falls back to slog.Default(). Panics if name
// is empty.
func NewBaseProcess(name string, logger *slog.Logger) BaseProcess {
	if name == "" {
		panic("nodeserver: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger}
}

// Spawn starts cmd and takes ownership of it. Stdout and Stderr are left
// as the caller configured them. The supervisor leaves both nil, so the
// server's output goes to the null device: it is neither inherited from the
// host nor captured in pipes, since a pipe nobody drains can fill and block
// the child.
func (b *BaseProcess) Spawn(cmd *exec.Cmd) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s process: %w", b.name, err)
	}
	b.cmd = cmd
	b.startedAt = time.Now()

	// cmd.Wait must run exactly once per process. The buffered done channel
	// carries its result to Kill; exited is a broadcast for any number of
	// readers (Running, readiness polls).
	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	b.log.Info("process started", "process", b.name, "pid", cmd.Process.Pid, "dir", cmd.Dir)
	return nil
}

// Kill sends SIGKILL, waits for the reaper, and clears the handle. The handle
// is cleared even when an error is returned. A process that has already
// exited is not an error. Calling Kill on an empty handle returns nil.
func (b *BaseProcess) Kill() error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.reset()
		return nil
	}
	pid := b.cmd.Process.Pid
	err := killWithDone(b.cmd, b.waitDone, b.name)
	if err == nil {
		b.log.Info("process stopped", "process", b.name, "pid", pid)
	}
	b.reset()
	return err
}

func (b *BaseProcess) reset() {
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
	b.startedAt = time.Time{}
}

// IsStarted reports whether the handle owns a process. It stays true after
// the process exits on its own until Kill is called.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// Running reports whether the owned process is still alive.
func (b *BaseProcess) Running() bool {
	if b.exited == nil {
		return false
	}
	select {
	case <-b.exited:
		return false
	default:
		return true
	}
}

// Exited returns a channel closed when the owned process exits, or nil when
// the handle is empty.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// Pid returns the OS process id, or 0 when the handle is empty.
func (b *BaseProcess) Pid() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// StartedAt returns when Spawn succeeded, or the zero time.
func (b *BaseProcess) StartedAt() time.Time {
	return b.startedAt
}

// Logger returns the logger used by this handle.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}
