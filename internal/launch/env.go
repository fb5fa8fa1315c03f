package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apiproxy/nodeserver/internal/fileutil"
	"github.com/apiproxy/nodeserver/internal/sentinel"
	"golang.org/x/sync/errgroup"
)

// ErrResourceDir is returned by Prepare when the installation directory
// containing the server bundle cannot be determined.
const ErrResourceDir = sentinel.Error("failed to get resource directory")

// Environment variable names understood by the backend server.
const (
	EnvPort         = "PORT"
	EnvMode         = "NODE_ENV"
	EnvDatabasePath = "DATABASE_PATH"
)

// ResourceResolver yields the directory the server bundle is installed in.
type ResourceResolver interface {
	ResourceDir() (string, error)
}

// Config describes how to derive an Environment.
type Config struct {
	Port         int
	Mode         string   // value for NODE_ENV, e.g. "production"
	DataDir      string   // empty means <fileutil.DataHome()>/<AppName>
	AppName      string   // directory name under the platform data dir
	DatabaseFile string   // file name inside the data dir
	ExtraEnv     []string // appended last, key=value

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Environment is the resolved, read-only launch environment.
type Environment struct {
	WorkDir      string
	DataDir      string // empty when no data dir could be determined
	DatabasePath string // empty when DataDir is empty
	Port         int
	Mode         string
	Vars         []string // full child environment
}

// Prepare resolves the resource directory and prepares the data directory
// concurrently. Only a resource directory failure is fatal; a data
// directory that cannot be determined or created is logged and the server is
// launched anyway.
func Prepare(ctx context.Context, cfg Config, res ResourceResolver) (Environment, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if res == nil {
		return Environment{}, fmt.Errorf("%w: no resource resolver", ErrResourceDir)
	}

	env := Environment{Port: cfg.Port, Mode: cfg.Mode}

	// Each goroutine writes only its own fields of env.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		dir, err := resolveWorkDir(res)
		if err != nil {
			return err
		}
		env.WorkDir = dir
		return nil
	})
	g.Go(func() error {
		dataDir, err := dataDir(cfg)
		if err != nil {
			log.Warn("no data directory; database path not set", "error", err)
			return nil
		}
		if err := fileutil.EnsureDir(dataDir); err != nil {
			log.Warn("failed to create data directory", "dir", dataDir, "error", err)
		}
		env.DataDir = dataDir
		if cfg.DatabaseFile != "" {
			env.DatabasePath = filepath.Join(dataDir, cfg.DatabaseFile)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Environment{}, err
	}

	env.Vars = buildVars(os.Environ(), env, cfg.ExtraEnv)
	return env, nil
}

func resolveWorkDir(res ResourceResolver) (string, error) {
	dir, err := res.ResourceDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResourceDir, err)
	}
	if dir == "" {
		return "", fmt.Errorf("%w: empty path", ErrResourceDir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResourceDir, err)
	}
	return abs, nil
}

func dataDir(cfg Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	if cfg.AppName == "" {
		return "", errors.New("app name must not be empty")
	}
	home, err := fileutil.DataHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, cfg.AppName), nil
}

// buildVars appends the server variables to base. exec.Cmd keeps the last
// value for a duplicated key, so these override anything inherited.
func buildVars(base []string, env Environment, extra []string) []string {
	vars := make([]string, 0, len(base)+3+len(extra))
	vars = append(vars, base...)
	vars = append(vars,
		EnvPort+"="+strconv.Itoa(env.Port),
		EnvMode+"="+env.Mode,
	)
	if env.DatabasePath != "" {
		vars = append(vars, EnvDatabasePath+"="+env.DatabasePath)
	}
	return append(vars, extra...)
}

// Command builds the child command. It deliberately does not bind a
// context: the server must outlive the call that started it. The standard
// streams stay nil, sending server output to the null device rather than to
// unread pipes.
func (e Environment) Command(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...) //nolint:gosec // command comes from supervisor configuration
	cmd.Dir = e.WorkDir
	cmd.Env = e.Vars
	return cmd
}

// Lookup returns the value of key in Vars, honoring last-wins semantics.
func (e Environment) Lookup(key string) (string, bool) {
	prefix := key + "="
	for i := len(e.Vars) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(e.Vars[i], prefix); ok {
			return v, true
		}
	}
	return "", false
}
