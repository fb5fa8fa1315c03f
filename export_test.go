package nodeserver

import "time"

// ConfigSnapshot holds a copy of supervisorConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	Command           string
	Args              []string
	ExtraEnv          []string
	Port              int
	Mode              string
	DataDir           string
	AppName           string
	DatabaseFile      string
	HealthURL         string
	HealthPath        string
	HealthTimeout     time.Duration
	StopGrace         time.Duration
	StartGrace        time.Duration
	ReadinessPolling  bool
	ReadinessInterval time.Duration
	ReadinessTimeout  time.Duration
	LockFile          string
	ResolvedHealthURL string
}

// ApplyOptionsForTesting creates a default supervisorConfig, applies the
// given options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultSupervisorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		Command:           cfg.Command,
		Args:              cfg.Args,
		ExtraEnv:          cfg.ExtraEnv,
		Port:              cfg.Port,
		Mode:              cfg.Mode,
		DataDir:           cfg.DataDir,
		AppName:           cfg.AppName,
		DatabaseFile:      cfg.DatabaseFile,
		HealthURL:         cfg.HealthURL,
		HealthPath:        cfg.HealthPath,
		HealthTimeout:     cfg.HealthTimeout,
		StopGrace:         cfg.StopGrace,
		StartGrace:        cfg.StartGrace,
		ReadinessPolling:  cfg.ReadinessPolling,
		ReadinessInterval: cfg.ReadinessInterval,
		ReadinessTimeout:  cfg.ReadinessTimeout,
		LockFile:          cfg.LockFile,
		ResolvedHealthURL: cfg.ResolvedHealthURL(),
	}
}

// SetHostSleepForTesting replaces the wait used by Host.Setup.
func SetHostSleepForTesting(h *Host, sleep func(time.Duration)) {
	h.sleep = sleep
}

// SetupDelayForTesting returns the configured setup delay.
func SetupDelayForTesting(h *Host) time.Duration {
	return h.setupDelay
}
