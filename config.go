package nodeserver

import "github.com/apiproxy/nodeserver/internal/core"

// supervisorConfig holds configuration for a Supervisor. This unexported type
// wraps core.SupervisorConfig via embedding, keeping internal/core types out
// of the public API signature.
type supervisorConfig struct {
	core.SupervisorConfig
}

func (c supervisorConfig) toCoreConfig() core.SupervisorConfig {
	return c.SupervisorConfig
}

// defaultSupervisorConfig returns a supervisorConfig populated with all
// default values. Both New and test helpers start from it.
func defaultSupervisorConfig() supervisorConfig {
	return supervisorConfig{core.SupervisorConfig{
		Command:           DefaultCommand,
		Args:              []string{DefaultEntryPoint},
		Port:              DefaultPort,
		Mode:              DefaultMode,
		AppName:           DefaultAppName,
		DatabaseFile:      DefaultDatabaseFile,
		HealthPath:        DefaultHealthPath,
		HealthTimeout:     DefaultHealthTimeout,
		StopGrace:         DefaultRestartStopGrace,
		StartGrace:        DefaultRestartStartGrace,
		ReadinessInterval: DefaultReadinessInterval,
		ReadinessTimeout:  DefaultReadinessTimeout,
	}}
}
