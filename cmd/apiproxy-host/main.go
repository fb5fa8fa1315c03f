// Command apiproxy-host runs the API Proxy backend server without the desktop
// shell. It performs the same setup as the desktop application, restarts the
// server on SIGHUP, logs a status report on SIGUSR1 and stops the server on
// SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/apiproxy/nodeserver"
)

type cliOptions struct {
	Config           string         `short:"c" long:"config" description:"YAML configuration file"`
	ResourceDir      string         `long:"resource-dir" description:"directory holding the server bundle (default: next to this executable)"`
	DataDir          string         `long:"data-dir" description:"directory holding the server database (default: platform data directory)"`
	Command          string         `long:"command" description:"server executable (default: node)"`
	Args             []string       `long:"arg" description:"server argument, repeatable (default: dist/server.js)"`
	Port             int            `short:"p" long:"port" description:"server port (default: 3000)"`
	Mode             string         `long:"mode" description:"NODE_ENV passed to the server (default: production)"`
	SetupDelay       *time.Duration `long:"setup-delay" description:"wait after the server starts (default: 3s)"`
	ReadinessPolling bool           `long:"readiness-polling" description:"poll the health endpoint after restarts instead of waiting a fixed time"`
	Lock             bool           `long:"lock" description:"refuse to start when another host supervises the data directory"`
	LogLevel         string         `long:"log-level" description:"debug, info, warn or error (default: info)"`
}

func main() {
	os.Exit(_main())
}

func _main() int {
	var opts cliOptions
	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	cfg.applyFlags(&opts)
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}

	level, _ := parseLevel(cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	nodeserver.SetLogger(log.With("component", "nodeserver"))

	return run(context.Background(), cfg, log)
}

func run(ctx context.Context, cfg *fileConfig, log *slog.Logger) int {
	sup := nodeserver.New(cfg.supervisorOptions()...)
	host := nodeserver.NewHost(sup, cfg.appHandle(), cfg.hostOptions(log)...)
	defer host.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, watchedSignals...)
	defer signal.Stop(sigCh)

	if err := host.Setup(ctx); err != nil {
		log.Error("setup failed", "error", err)
		return 1
	}
	log.Info("server running", "pid", sup.Info().PID, "health_url", sup.Info().HealthURL)

	for sig := range sigCh {
		switch signalAction(sig) {
		case actionRestart:
			log.Info("restart requested", "signal", sig)
			if err := host.RestartServer(ctx); err != nil {
				log.Error("restart failed", "error", err)
			}
		case actionStatus:
			healthy, _ := host.CheckServerStatus(ctx)
			log.Info("server status", "healthy", healthy, "report", host.ServerInfo(ctx))
		case actionShutdown:
			log.Info("shutting down", "signal", sig)
			return 0
		}
	}
	return 0
}
