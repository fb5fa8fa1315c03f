package nodeserver_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/apiproxy/nodeserver"
	"github.com/apiproxy/nodeserver/internal/netutil"
)

// TestHelperProcess is not a real test. It stands in for the node server:
// it optionally serves /api/health on $PORT and blocks until killed.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("HELPER_SERVE") == "1" {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		_ = http.ListenAndServe("127.0.0.1:"+os.Getenv("PORT"), mux) //nolint:gosec // test helper
		os.Exit(1)
	}
	time.Sleep(time.Hour)
	os.Exit(0)
}

// testOptions launch the helper child on a free port with a private data
// directory and no restart waits.
func testOptions(t *testing.T, extraEnv ...string) []nodeserver.Option {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	port, err := netutil.FreePort()
	if err != nil {
		t.Fatalf("FreePort() error = %v", err)
	}
	return []nodeserver.Option{
		nodeserver.WithCommand(exe),
		nodeserver.WithArgs("-test.run=^TestHelperProcess$"),
		nodeserver.WithExtraEnv(append([]string{"GO_WANT_HELPER_PROCESS=1"}, extraEnv...)...),
		nodeserver.WithPort(port),
		nodeserver.WithHealthURL("http://127.0.0.1:" + strconv.Itoa(port) + "/api/health"),
		nodeserver.WithHealthTimeout(time.Second),
		nodeserver.WithDataDir(filepath.Join(t.TempDir(), "api-proxy")),
		nodeserver.WithRestartGrace(0, 0),
	}
}

// newTestSupervisor returns a supervisor that is closed when the test ends.
func newTestSupervisor(t *testing.T, opts ...nodeserver.Option) nodeserver.Supervisor {
	t.Helper()
	sup := nodeserver.New(opts...)
	t.Cleanup(sup.Close)
	return sup
}

// sleepRecorder replaces Host.Setup's wait.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func newTestHost(t *testing.T, sup nodeserver.Supervisor, app nodeserver.AppHandle, opts ...nodeserver.HostOption) (*nodeserver.Host, *sleepRecorder) {
	t.Helper()
	h := nodeserver.NewHost(sup, app, opts...)
	rec := &sleepRecorder{}
	nodeserver.SetHostSleepForTesting(h, rec.sleep)
	return h, rec
}

// processGone reports whether no process with pid exists.
func processGone(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return p.Signal(syscall.Signal(0)) != nil
}

func TestHost_SetupStartsServerThenWaits(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, testOptions(t)...)
	h, rec := newTestHost(t, sup, nodeserver.ResourceDir(t.TempDir()))

	if err := h.Setup(context.Background()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	info := sup.Info()
	if !info.Started || !info.Running {
		t.Errorf("after Setup: Started=%v Running=%v, want both true", info.Started, info.Running)
	}
	got := rec.recorded()
	if len(got) != 1 || got[0] != nodeserver.DefaultSetupDelay {
		t.Errorf("setup waits = %v, want [%v]", got, nodeserver.DefaultSetupDelay)
	}
}

func TestHost_SetupDelayOption(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, testOptions(t)...)
	h, rec := newTestHost(t, sup, nodeserver.ResourceDir(t.TempDir()), nodeserver.WithSetupDelay(50*time.Millisecond))

	if d := nodeserver.SetupDelayForTesting(h); d != 50*time.Millisecond {
		t.Fatalf("setup delay = %v, want 50ms", d)
	}
	if err := h.Setup(context.Background()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if got := rec.recorded(); len(got) != 1 || got[0] != 50*time.Millisecond {
		t.Errorf("setup waits = %v, want [50ms]", got)
	}
}

func TestHost_SetupAborts(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts    func(t *testing.T) []nodeserver.Option
		app     func(t *testing.T) nodeserver.AppHandle
		wantErr error
	}{
		"missing server executable": {
			opts: func(t *testing.T) []nodeserver.Option {
				return append(testOptions(t), nodeserver.WithCommand(filepath.Join(t.TempDir(), "no-such-node")))
			},
			app:     func(t *testing.T) nodeserver.AppHandle { return nodeserver.ResourceDir(t.TempDir()) },
			wantErr: nodeserver.ErrSpawn,
		},
		"unresolvable resource directory": {
			opts:    func(t *testing.T) []nodeserver.Option { return testOptions(t) },
			app:     func(*testing.T) nodeserver.AppHandle { return nodeserver.ResourceDir("") },
			wantErr: nodeserver.ErrResourceDir,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			sup := newTestSupervisor(t, tc.opts(t)...)
			h, rec := newTestHost(t, sup, tc.app(t))

			err := h.Setup(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Setup() error = %v, want %v", err, tc.wantErr)
			}
			if got := rec.recorded(); len(got) != 0 {
				t.Errorf("setup waited %v after a failed start, want no wait", got)
			}
			if info := sup.Info(); info.Started {
				t.Error("supervisor holds a process after a failed start")
			}
		})
	}
}

func TestHost_InvokeUnknownCommand(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, testOptions(t)...)
	h, _ := newTestHost(t, sup, nodeserver.ResourceDir(t.TempDir()))

	for _, name := range []string{"", "stop_server", "CHECK_SERVER_STATUS"} {
		if _, err := h.Invoke(context.Background(), name); !errors.Is(err, nodeserver.ErrUnknownCommand) {
			t.Errorf("Invoke(%q) error = %v, want ErrUnknownCommand", name, err)
		}
	}
}

func TestHost_InvokeCheckServerStatus(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, testOptions(t, "HELPER_SERVE=1")...)
	h, _ := newTestHost(t, sup, nodeserver.ResourceDir(t.TempDir()))
	ctx := context.Background()

	got, err := h.Invoke(ctx, nodeserver.CommandCheckServerStatus)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if healthy, ok := got.(bool); !ok || healthy {
		t.Fatalf("status before start = %#v, want false", got)
	}

	if err := h.Setup(ctx); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		got, err := h.Invoke(ctx, nodeserver.CommandCheckServerStatus)
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if got == true {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server never reported healthy")
		}
		time.Sleep(50 * time.Millisecond)
	}

	sup.Stop()
	if healthy, _ := h.CheckServerStatus(ctx); healthy {
		t.Error("CheckServerStatus() = true after Stop, want false")
	}
}

func TestHost_InvokeServerInfo(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "proxy-data")
	sup := newTestSupervisor(t, append(testOptions(t), nodeserver.WithDataDir(dataDir))...)
	h, _ := newTestHost(t, sup, nodeserver.ResourceDir(t.TempDir()))
	ctx := context.Background()

	if err := h.Setup(ctx); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	got, err := h.Invoke(ctx, nodeserver.CommandServerInfo)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	report, ok := got.(nodeserver.ServerReport)
	if !ok {
		t.Fatalf("Invoke() returned %T, want ServerReport", got)
	}

	wantDB := filepath.Join(dataDir, nodeserver.DefaultDatabaseFile)
	if report.Server.DatabasePath != wantDB {
		t.Errorf("Server.DatabasePath = %q, want %q", report.Server.DatabasePath, wantDB)
	}
	if !report.Server.Running || report.Server.PID == 0 || report.Server.Generation != 1 {
		t.Errorf("Server = %+v, want a running first generation", report.Server)
	}
	if report.Database.Path != wantDB {
		t.Errorf("Database.Path = %q, want %q", report.Database.Path, wantDB)
	}
	// The helper never creates the database.
	if report.Database.Exists || report.Database.APIKeys != -1 {
		t.Errorf("Database = %+v, want a missing database", report.Database)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("data directory not created: %v", err)
	}
}

func TestHost_InvokeRestartServer(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, testOptions(t)...)
	h, _ := newTestHost(t, sup, nodeserver.ResourceDir(t.TempDir()))
	ctx := context.Background()

	if err := h.Setup(ctx); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	first := sup.Info()

	got, err := h.Invoke(ctx, nodeserver.CommandRestartServer)
	if err != nil {
		t.Fatalf("Invoke(restart_server) error = %v", err)
	}
	if got != nil {
		t.Errorf("Invoke(restart_server) = %#v, want nil", got)
	}

	second := sup.Info()
	if second.Generation != first.Generation+1 {
		t.Errorf("Generation = %d, want %d", second.Generation, first.Generation+1)
	}
	if second.PID == first.PID {
		t.Errorf("PID unchanged after restart: %d", second.PID)
	}
	if !second.Running {
		t.Error("server not running after restart")
	}
}

func TestHost_InvokeRestartServerAfterClose(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, testOptions(t)...)
	h, _ := newTestHost(t, sup, nodeserver.ResourceDir(t.TempDir()))

	h.Close()
	if _, err := h.Invoke(context.Background(), nodeserver.CommandRestartServer); !errors.Is(err, nodeserver.ErrClosed) {
		t.Fatalf("Invoke(restart_server) after Close error = %v, want ErrClosed", err)
	}
}

func TestNewHost_PanicsOnNil(t *testing.T) {
	t.Parallel()
	sup := newTestSupervisor(t, testOptions(t)...)
	runPanicTests(t, []panicTestCase{
		{
			name:     "nil_supervisor",
			panics:   true,
			panicMsg: "nodeserver: supervisor must not be nil",
			fn:       func() { nodeserver.NewHost(nil, nodeserver.ResourceDir("/")) },
		},
		{
			name:     "nil_app",
			panics:   true,
			panicMsg: "nodeserver: app handle must not be nil",
			fn:       func() { nodeserver.NewHost(sup, nil) },
		},
	})
}

func TestNew_CloseKillsServer(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("signal 0 probing is unix-only")
	}

	sup := newTestSupervisor(t, testOptions(t)...)
	if err := sup.Start(context.Background(), nodeserver.ResourceDir(t.TempDir())); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	pid := sup.Info().PID

	sup.Close()
	if !processGone(pid) {
		t.Errorf("process %d still alive after Close", pid)
	}
	if err := sup.Start(context.Background(), nodeserver.ResourceDir(t.TempDir())); !errors.Is(err, nodeserver.ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
	// Close is idempotent.
	sup.Close()
}

func TestNew_UnreachableSupervisorStopsServer(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("signal 0 probing is unix-only")
	}

	pid := func() int {
		sup := nodeserver.New(testOptions(t)...)
		if err := sup.Start(context.Background(), nodeserver.ResourceDir(t.TempDir())); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		return sup.Info().PID
	}()

	deadline := time.Now().Add(10 * time.Second)
	for !processGone(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("process %d still alive after its supervisor was collected", pid)
		}
		runtime.GC()
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNew_InstancesAreIndependent(t *testing.T) {
	t.Parallel()

	a := newTestSupervisor(t, testOptions(t)...)
	b := newTestSupervisor(t, testOptions(t)...)
	ctx := context.Background()

	if err := a.Start(ctx, nodeserver.ResourceDir(t.TempDir())); err != nil {
		t.Fatalf("a.Start() error = %v", err)
	}
	if err := b.Start(ctx, nodeserver.ResourceDir(t.TempDir())); err != nil {
		t.Fatalf("b.Start() error = %v", err)
	}
	if a.Info().PID == b.Info().PID {
		t.Fatal("independent supervisors share a process")
	}

	a.Stop()
	if a.Info().Started {
		t.Error("a still holds a process after Stop")
	}
	if !b.Info().Running {
		t.Error("stopping a affected b")
	}
}

func TestHost_SetupSharedDataDir(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "api-proxy")
	supA := newTestSupervisor(t, append(testOptions(t), nodeserver.WithDataDir(dataDir))...)
	supB := newTestSupervisor(t, append(testOptions(t), nodeserver.WithDataDir(dataDir))...)
	hostA, _ := newTestHost(t, supA, nodeserver.ResourceDir(t.TempDir()))
	hostB, _ := newTestHost(t, supB, nodeserver.ResourceDir(t.TempDir()))
	ctx := context.Background()

	if err := hostA.Setup(ctx); err != nil {
		t.Fatalf("hostA.Setup() error = %v", err)
	}
	if err := hostB.Setup(ctx); err != nil {
		t.Fatalf("hostB.Setup() error = %v, want nil without WithInstanceLock", err)
	}

	a, b := supA.Info(), supB.Info()
	if !a.Running || !b.Running || a.PID == b.PID {
		t.Errorf("Info() = %+v and %+v, want two running servers", a, b)
	}
	if _, err := os.Stat(filepath.Join(dataDir, nodeserver.DefaultLockFile)); !os.IsNotExist(err) {
		t.Errorf("lock file stat error = %v, want not exist", err)
	}
}

func TestNew_InstanceLockGuardsSharedDataDir(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "api-proxy")
	a := newTestSupervisor(t, append(testOptions(t), nodeserver.WithDataDir(dataDir), nodeserver.WithInstanceLock())...)
	b := newTestSupervisor(t, append(testOptions(t), nodeserver.WithDataDir(dataDir), nodeserver.WithInstanceLock())...)
	ctx := context.Background()

	if err := a.Start(ctx, nodeserver.ResourceDir(t.TempDir())); err != nil {
		t.Fatalf("a.Start() error = %v", err)
	}
	if err := b.Start(ctx, nodeserver.ResourceDir(t.TempDir())); !errors.Is(err, nodeserver.ErrServerLocked) {
		t.Fatalf("b.Start() error = %v, want ErrServerLocked", err)
	}

	a.Stop()
	if err := b.Start(ctx, nodeserver.ResourceDir(t.TempDir())); err != nil {
		t.Fatalf("b.Start() after a.Stop error = %v", err)
	}
}
