package nodeserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/apiproxy/nodeserver/internal/core"
)

// ServerInfo is a point-in-time view of the supervised server.
type ServerInfo = core.Info

// Compile-time interface satisfaction checks.
var (
	_ Supervisor = (*supervisorWrapper)(nil)
	_ AppHandle  = resourceDir("")
	_ AppHandle  = executableDir{}
)

// supervisorWrapper wraps core.Supervisor to implement the Supervisor
// interface.
//
// The core.Supervisor is stored as a named (unexported) field rather than
// embedded so type assertions cannot reach methods outside the Supervisor
// interface.
type supervisorWrapper struct {
	sup     *core.Supervisor
	cleanup runtime.Cleanup
}

func (w *supervisorWrapper) Start(ctx context.Context, app AppHandle) error {
	return w.sup.Start(ctx, app)
}

func (w *supervisorWrapper) Stop() {
	w.sup.Stop()
}

func (w *supervisorWrapper) Restart(ctx context.Context, app AppHandle) error {
	return w.sup.Restart(ctx, app)
}

func (w *supervisorWrapper) CheckStatus(ctx context.Context) (bool, error) {
	return w.sup.CheckStatus(ctx)
}

func (w *supervisorWrapper) Info() ServerInfo {
	return w.sup.Info()
}

// Close stops the server and cancels the garbage-collection fallback
// registered by New.
func (w *supervisorWrapper) Close() {
	w.cleanup.Stop()
	w.sup.Close()
}

// New returns a Supervisor configured by opts. It performs no I/O; the server
// is launched by Start.
//
// If the returned Supervisor becomes unreachable without Close, the garbage
// collector closes it, killing any server it still holds. On Linux the
// server is also killed when the host process dies.
//
// Each call returns an independent Supervisor. Two Supervisors sharing a data
// directory both start their servers unless WithInstanceLock is set.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Supervisor interface by design for testability (mockable).
func New(opts ...Option) Supervisor {
	cfg := defaultSupervisorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	sup := core.NewSupervisor(cfg.toCoreConfig())
	w := &supervisorWrapper{sup: sup}
	w.cleanup = runtime.AddCleanup(w, func(s *core.Supervisor) {
		s.Close()
	}, sup)
	return w
}

// resourceDir is an AppHandle with a fixed resource directory.
type resourceDir string

func (d resourceDir) ResourceDir() (string, error) {
	return string(d), nil
}

// ResourceDir returns an AppHandle that always resolves to dir. Start fails
// with ErrResourceDir when dir is empty.
//
//nolint:ireturn // AppHandle is the only thing callers need.
func ResourceDir(dir string) AppHandle {
	return resourceDir(dir)
}

// executableDir resolves the directory of the running executable.
type executableDir struct{}

func (executableDir) ResourceDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// ExecutableDir returns an AppHandle that resolves to the directory holding
// the running executable, following symlinks. Packaged hosts ship the server
// next to their binary.
//
//nolint:ireturn // AppHandle is the only thing callers need.
func ExecutableDir() AppHandle {
	return executableDir{}
}
