package domain

import "time"

// HistoryRecord captures a generated (and possibly executed) command.
type HistoryRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Prompt    string    `json:"prompt"`
	Command   string    `json:"command"`
	Provider  string    `json:"provider"`
	Executed  bool      `json:"executed"`
	Success   bool      `json:"success,omitempty"`
	ExitCode  int       `json:"exit_code,omitempty"`
	RiskLevel RiskLevel `json:"risk_level,omitempty"`
}

// CacheEntry stores a generated command under its fingerprint key.
type CacheEntry struct {
	Key       string    `json:"key"`
	Command   string    `json:"command"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	HitCount  int       `json:"hit_count"`
}

// Expired reports whether the entry is logically absent at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// CacheStats summarizes cache contents.
type CacheStats struct {
	Entries    int
	Expired    int
	TotalHits  int
	MaxEntries int
	TTL        time.Duration
	Path       string
}

// PrewarmEntry is a curated (prompt, command) pair inserted for a provider.
type PrewarmEntry struct {
	Prompt   string
	Provider string
	Command  string
}
