package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apiproxy/nodeserver"
)

// fileConfig is the optional YAML configuration. Zero values keep the
// library defaults.
type fileConfig struct {
	ResourceDir      string            `yaml:"resource_dir"`
	DataDir          string            `yaml:"data_dir"`
	Command          string            `yaml:"command"`
	Args             []string          `yaml:"args"`
	Port             int               `yaml:"port"`
	Mode             string            `yaml:"mode"`
	Env              map[string]string `yaml:"env"`
	HealthPath       string            `yaml:"health_path"`
	SetupDelay       *time.Duration    `yaml:"setup_delay"`
	ReadinessPolling bool              `yaml:"readiness_polling"`
	SingleInstance   bool              `yaml:"single_instance"`
	LogLevel         string            `yaml:"log_level"`
}

// loadConfig reads path. An empty path yields an empty config.
func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides file settings with the flags that were given.
func (c *fileConfig) applyFlags(o *cliOptions) {
	if o.ResourceDir != "" {
		c.ResourceDir = o.ResourceDir
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Command != "" {
		c.Command = o.Command
	}
	if len(o.Args) > 0 {
		c.Args = o.Args
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.Mode != "" {
		c.Mode = o.Mode
	}
	if o.SetupDelay != nil {
		d := *o.SetupDelay
		c.SetupDelay = &d
	}
	if o.ReadinessPolling {
		c.ReadinessPolling = true
	}
	if o.Lock {
		c.SingleInstance = true
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// validate rejects values the library options would panic on.
func (c *fileConfig) validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.HealthPath != "" && !strings.HasPrefix(c.HealthPath, "/") {
		errs = append(errs, fmt.Errorf("health_path must start with /, got %q", c.HealthPath))
	}
	if c.SetupDelay != nil && *c.SetupDelay < 0 {
		errs = append(errs, fmt.Errorf("setup_delay must not be negative, got %s", *c.SetupDelay))
	}
	for k := range c.Env {
		if k == "" || strings.Contains(k, "=") {
			errs = append(errs, fmt.Errorf("invalid environment variable name %q", k))
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// supervisorOptions translates the config into nodeserver options.
func (c *fileConfig) supervisorOptions() []nodeserver.Option {
	var list []nodeserver.Option
	if c.Command != "" {
		list = append(list, nodeserver.WithCommand(c.Command))
	}
	if len(c.Args) > 0 {
		list = append(list, nodeserver.WithArgs(c.Args...))
	}
	if c.Port != 0 {
		list = append(list, nodeserver.WithPort(c.Port))
	}
	if c.Mode != "" {
		list = append(list, nodeserver.WithMode(c.Mode))
	}
	if c.DataDir != "" {
		list = append(list, nodeserver.WithDataDir(c.DataDir))
	}
	if c.HealthPath != "" {
		list = append(list, nodeserver.WithHealthPath(c.HealthPath))
	}
	if len(c.Env) > 0 {
		kv := make([]string, 0, len(c.Env))
		for k, v := range c.Env {
			kv = append(kv, k+"="+v)
		}
		list = append(list, nodeserver.WithExtraEnv(kv...))
	}
	if c.ReadinessPolling {
		list = append(list, nodeserver.WithReadinessPolling(0, 0))
	}
	if c.SingleInstance {
		list = append(list, nodeserver.WithInstanceLock())
	}
	return list
}

func (c *fileConfig) hostOptions(log *slog.Logger) []nodeserver.HostOption {
	list := []nodeserver.HostOption{nodeserver.WithHostLogger(log)}
	if c.SetupDelay != nil {
		list = append(list, nodeserver.WithSetupDelay(*c.SetupDelay))
	}
	return list
}

//nolint:ireturn // AppHandle is what the host needs.
func (c *fileConfig) appHandle() nodeserver.AppHandle {
	if c.ResourceDir != "" {
		return nodeserver.ResourceDir(c.ResourceDir)
	}
	return nodeserver.ExecutableDir()
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}
