package domain

import (
	"strings"
	"time"
)

// Config accessors apply defaults so callers never see zero values.

// ProviderName returns the requested provider, or the configured default.
func (c *Config) ProviderName(override string) string {
	if name := strings.ToLower(strings.TrimSpace(override)); name != "" {
		return name
	}
	if c.DefaultProvider == "" {
		return DefaultProvider
	}
	return strings.ToLower(c.DefaultProvider)
}

// ProviderSettingsFor returns per-provider overrides (zero value when absent).
func (c *Config) ProviderSettingsFor(name string) ProviderSettings {
	if c.Providers == nil {
		return ProviderSettings{}
	}
	return c.Providers[strings.ToLower(name)]
}

// HistoryMaxEntries returns the history capacity.
func (c *Config) HistoryMaxEntries() int {
	if c.History.MaxEntries <= 0 {
		return DefaultHistoryMaxEntries
	}
	return c.History.MaxEntries
}

// HistoryContextK returns how many records feed the generation context.
func (c *Config) HistoryContextK() int {
	if c.History.ContextK <= 0 {
		return DefaultContextRecords
	}
	return c.History.ContextK
}

// CacheTTL parses the configured cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL, DefaultCacheTTL)
}

// CacheMaxEntries returns the maximum number of cache entries
func (c *Config) CacheMaxEntries() int {
	if c.Cache.MaxEntries <= 0 {
		return DefaultMaxCacheEntries
	}
	return c.Cache.MaxEntries
}

// DaemonWorkers returns the size of the daemon connection pool.
func (c *Config) DaemonWorkers() int {
	if c.Daemon.Workers <= 0 {
		return DefaultDaemonWorkers
	}
	return c.Daemon.Workers
}

// DaemonRequestTimeout bounds a single generate request inside the daemon.
func (c *Config) DaemonRequestTimeout() time.Duration {
	return parseDurationOr(c.Daemon.RequestTimeout, DefaultDaemonRequestTimeout)
}

// DaemonClientTimeout bounds how long a client waits for the daemon.
func (c *Config) DaemonClientTimeout() time.Duration {
	return parseDurationOr(c.Daemon.ClientTimeout, DefaultClientTimeout)
}

// PrewarmProviders lists the providers whose cache entries are prewarmed.
// The default provider is always included.
func (c *Config) PrewarmProviders() []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	add(c.ProviderName(""))
	for _, name := range c.Daemon.PrewarmProviders {
		add(name)
	}
	return out
}

// BatchMaxParallel returns the execution slot count for batch runs.
func (c *Config) BatchMaxParallel() int {
	if c.Batch.MaxParallel <= 0 {
		return DefaultMaxParallel
	}
	return c.Batch.MaxParallel
}

// BatchMaxDepth returns the project scan depth.
func (c *Config) BatchMaxDepth() int {
	if c.Batch.MaxDepth <= 0 {
		return DefaultScanDepth
	}
	return c.Batch.MaxDepth
}

// GetExecutionShell returns the configured shell for command execution
// Returns the default shell if not configured
func (c *Config) GetExecutionShell() string {
	const defaultShell = "sh"

	if c.Execution.Shell == "" || c.Execution.Shell == "auto" {
		return defaultShell
	}
	return c.Execution.Shell
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
