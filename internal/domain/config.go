package domain

// Config mirrors ~/.askai/config.yaml.
type Config struct {
	ConfigFormatVersion string                      `yaml:"config_format_version"`
	DefaultProvider     string                      `yaml:"default_provider"`
	AutoApproveSafe     bool                        `yaml:"auto_approve_safe"`
	EnableRAG           bool                        `yaml:"enable_rag"`
	History             HistorySettings             `yaml:"history"`
	Cache               CacheSettings               `yaml:"cache"`
	Daemon              DaemonSettings              `yaml:"daemon"`
	Batch               BatchSettings               `yaml:"batch"`
	Security            SecuritySettings            `yaml:"security"`
	Execution           ExecutionSettings           `yaml:"execution"`
	Providers           map[string]ProviderSettings `yaml:"providers,omitempty"`
}

// HistorySettings configures the bounded command history.
type HistorySettings struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
	ContextK   int    `yaml:"context_k"`
}

// CacheSettings configures the response cache.
type CacheSettings struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	TTL        string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
}

// DaemonSettings controls the resident background process.
type DaemonSettings struct {
	Enabled          bool     `yaml:"enabled"`
	Socket           string   `yaml:"socket"`
	PIDFile          string   `yaml:"pid_file"`
	LogFile          string   `yaml:"log_file"`
	Workers          int      `yaml:"workers"`
	RequestTimeout   string   `yaml:"request_timeout"`
	ClientTimeout    string   `yaml:"client_timeout"`
	PrewarmProviders []string `yaml:"prewarm_providers"`
}

// BatchSettings controls multi-project runs.
type BatchSettings struct {
	MaxParallel int      `yaml:"max_parallel"`
	MaxDepth    int      `yaml:"max_depth"`
	Exclude     []string `yaml:"exclude"`
}

// SecuritySettings points at the optional soft-rule file.
type SecuritySettings struct {
	RulesFile  string `yaml:"rules_file"`
	WatchRules bool   `yaml:"watch_rules"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell string `yaml:"shell"`
}

// ProviderSettings overrides the defaults of a single provider variant.
type ProviderSettings struct {
	Command   string `yaml:"command,omitempty"`
	Model     string `yaml:"model,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
}
