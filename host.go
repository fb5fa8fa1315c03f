package nodeserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apiproxy/nodeserver/internal/core"
	"github.com/apiproxy/nodeserver/internal/store"
)

// Host command names routed by Host.Invoke.
const (
	CommandCheckServerStatus = "check_server_status"
	CommandRestartServer     = "restart_server"
	CommandServerInfo        = "server_info"
)

// DatabaseStats summarizes the server database. Row counts are -1 for tables
// that do not exist yet.
type DatabaseStats = store.Stats

// ServerReport is the result of the server_info command.
type ServerReport struct {
	Server   ServerInfo    `json:"server"`
	Database DatabaseStats `json:"database"`
}

// hostConfig holds Host settings applied by HostOption.
type hostConfig struct {
	setupDelay time.Duration
	logger     *slog.Logger
}

// HostOption configures a Host during construction via NewHost.
type HostOption func(*hostConfig)

// WithSetupDelay sets how long Setup waits after a successful start.
//
// Default: 3s.
//
// Panics if d is negative.
func WithSetupDelay(d time.Duration) HostOption {
	requireNonNegative("setup delay", d)
	return func(c *hostConfig) {
		c.setupDelay = d
	}
}

// WithHostLogger sets the logger used by the Host. Nil selects the package
// logger.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(c *hostConfig) {
		c.logger = l
	}
}

// Host is the glue between a desktop shell and its Supervisor: it runs the
// application setup step and serves the commands the UI invokes. Handlers
// receive the Host explicitly; there is no package-level instance.
type Host struct {
	sup        Supervisor
	app        AppHandle
	setupDelay time.Duration
	log        *slog.Logger

	// sleep is the setup wait. Replaced in tests.
	sleep func(time.Duration)
}

// NewHost returns a Host driving sup with the resources of app.
//
// Panics if sup or app is nil.
func NewHost(sup Supervisor, app AppHandle, opts ...HostOption) *Host {
	if sup == nil {
		panic("nodeserver: supervisor must not be nil")
	}
	if app == nil {
		panic("nodeserver: app handle must not be nil")
	}
	cfg := hostConfig{setupDelay: DefaultSetupDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = core.Logger()
	}
	return &Host{
		sup:        sup,
		app:        app,
		setupDelay: cfg.setupDelay,
		log:        cfg.logger,
		sleep:      time.Sleep,
	}
}

// Setup starts the server and, once it is spawned, waits the setup delay so
// the UI loads against a listening server. A start failure aborts setup
// without waiting.
func (h *Host) Setup(ctx context.Context) error {
	if err := h.sup.Start(ctx, h.app); err != nil {
		h.log.Error("failed to start server during setup", "error", err)
		return fmt.Errorf("setup: %w", err)
	}
	h.log.Info("server started; waiting before completing setup", "delay", h.setupDelay)
	h.sleep(h.setupDelay)
	return nil
}

// CheckServerStatus serves the check_server_status command.
func (h *Host) CheckServerStatus(ctx context.Context) (bool, error) {
	return h.sup.CheckStatus(ctx)
}

// RestartServer serves the restart_server command.
func (h *Host) RestartServer(ctx context.Context) error {
	return h.sup.Restart(ctx, h.app)
}

// ServerInfo serves the server_info command. Database errors are logged and
// leave the statistics at their unknown values.
func (h *Host) ServerInfo(ctx context.Context) ServerReport {
	info := h.sup.Info()
	stats, err := store.Inspect(ctx, info.DatabasePath, h.log)
	if err != nil {
		h.log.Warn("failed to inspect server database", "path", info.DatabasePath, "error", err)
	}
	return ServerReport{Server: info, Database: stats}
}

// Invoke routes a UI command by name. check_server_status returns a bool,
// restart_server returns nil or the restart error, server_info returns a
// ServerReport. Other names fail with ErrUnknownCommand.
func (h *Host) Invoke(ctx context.Context, name string) (any, error) {
	switch name {
	case CommandCheckServerStatus:
		return h.CheckServerStatus(ctx)
	case CommandRestartServer:
		if err := h.RestartServer(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	case CommandServerInfo:
		return h.ServerInfo(ctx), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// Close tears the supervisor down. Call it when the host application exits.
func (h *Host) Close() {
	h.sup.Close()
}
