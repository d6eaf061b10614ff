package domain

import (
	"strings"
	"time"
)

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// StateDirName is the per-user directory holding config, cache and history.
const StateDirName = ".askai"

// Provider identifiers. The set is closed: adding a provider means adding a variant.
const (
	ProviderGemini    = "gemini"
	ProviderClaude    = "claude"
	ProviderCodex     = "codex"
	ProviderOllama    = "ollama"
	ProviderGeminiAPI = "gemini-api"

	DefaultProvider = ProviderGemini
)

// KnownProviders lists every provider identifier, default first.
func KnownProviders() []string {
	return []string{ProviderGemini, ProviderClaude, ProviderCodex, ProviderOllama, ProviderGeminiAPI}
}

// IsKnownProvider reports whether name (case-insensitive) is a provider identifier.
func IsKnownProvider(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, known := range KnownProviders() {
		if known == name {
			return true
		}
	}
	return false
}

// Timeout and duration constants
const (
	// DefaultCacheTTL is how long a generated command stays reusable
	DefaultCacheTTL = time.Hour
	// DefaultProviderTimeout bounds a single provider round-trip
	DefaultProviderTimeout = 60 * time.Second
	// DefaultClientTimeout is how long a client waits on the daemon before falling back
	DefaultClientTimeout = 5 * time.Second
	// DefaultDaemonRequestTimeout bounds one generate request served by the daemon
	DefaultDaemonRequestTimeout = 90 * time.Second
	// DefaultCommandTimeout is the timeout for short helper commands (git, probes)
	DefaultCommandTimeout = 2 * time.Second
)

// Limit constants
const (
	// DefaultHistoryMaxEntries caps the history store
	DefaultHistoryMaxEntries = 100
	// DefaultContextRecords is how many past records feed a prompt
	DefaultContextRecords = 3
	// DefaultMaxCacheEntries is the maximum number of cache entries
	DefaultMaxCacheEntries = 1000
	// DefaultMaxParallel is the default batch execution slot count
	DefaultMaxParallel = 4
	// DefaultScanDepth is how deep batch discovery descends
	DefaultScanDepth = 3
	// DefaultDaemonWorkers caps concurrent daemon connections
	DefaultDaemonWorkers = 8
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
