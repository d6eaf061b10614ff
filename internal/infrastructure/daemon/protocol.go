// Package daemon hosts the resident askai process and its client.
//
// Client and server exchange exactly one request line and one response line
// per connection over a unix socket. Each line is a JSON object (NDJSON).
package daemon

import (
	"errors"

	"github.com/doeshing/askai-go/internal/domain"
)

// RequestKind selects the daemon operation.
type RequestKind string

const (
	KindGenerate RequestKind = "generate"
	KindStatus   RequestKind = "status"
	KindStop     RequestKind = "stop"
	KindExecuted RequestKind = "executed"
	KindClear    RequestKind = "clear_cache"
)

// Request is one client message.
type Request struct {
	ID       string      `json:"id"`
	Kind     RequestKind `json:"kind"`
	Prompt   string      `json:"prompt,omitempty"`
	Provider string      `json:"provider,omitempty"`
	NoCache  bool        `json:"no_cache,omitempty"`
	Dir      string      `json:"dir,omitempty"`
	// Command and ExitCode report an execution outcome (KindExecuted).
	Command  string `json:"command,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
}

// Response answers a Request with the same ID.
type Response struct {
	ID string `json:"id"`

	Command   string           `json:"command,omitempty"`
	RiskLevel domain.RiskLevel `json:"risk_level,omitempty"`
	Reasons   []string         `json:"reasons,omitempty"`
	CacheHit  bool             `json:"cache_hit,omitempty"`
	Provider  string           `json:"provider,omitempty"`

	// Error is a stable kind from domain.ErrorKind; Message is human readable.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	// Blocked carries the withheld command for display only.
	Blocked string `json:"blocked_command,omitempty"`

	State           domain.DaemonState `json:"state,omitempty"`
	PID             int                `json:"pid,omitempty"`
	UptimeSeconds   float64            `json:"uptime_seconds,omitempty"`
	LoadedProviders []string           `json:"loaded_providers,omitempty"`
	CacheEntries    int                `json:"cache_entries,omitempty"`
}

func errorResponse(id string, err error) Response {
	resp := Response{ID: id, Error: domain.ErrorKind(err), Message: err.Error()}
	var blocked *domain.BlockedError
	if errors.As(err, &blocked) {
		resp.RiskLevel = domain.RiskBlocked
		resp.Reasons = blocked.Reasons
		resp.Blocked = blocked.Command
	}
	return resp
}

// remoteError turns an error response back into an error that matches the
// same sentinel on the client side.
func remoteError(resp Response) error {
	if resp.Error == "" {
		return nil
	}
	if resp.Error == domain.KindBlocked {
		return &domain.BlockedError{Command: resp.Blocked, Reasons: resp.Reasons}
	}
	return domain.ErrorFromKind(resp.Error, resp.Message)
}
