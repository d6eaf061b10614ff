package domain

import "time"

// DaemonState is the lifecycle of the resident process.
type DaemonState string

const (
	DaemonStopped  DaemonState = "stopped"
	DaemonStarting DaemonState = "starting"
	DaemonRunning  DaemonState = "running"
	DaemonStopping DaemonState = "stopping"
)

// DaemonStatus is the answer to a status query.
type DaemonStatus struct {
	State           DaemonState
	PID             int
	Uptime          time.Duration
	LoadedProviders []string
	CacheEntries    int
	Socket          string
}
