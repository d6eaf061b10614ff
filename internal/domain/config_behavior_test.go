package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
)

// TestConfig_ProviderName tests provider resolution and normalization
func TestConfig_ProviderName(t *testing.T) {
	tests := []struct {
		name     string
		config   domain.Config
		override string
		want     string
	}{
		{
			name:   "falls back to built-in default",
			config: domain.Config{},
			want:   domain.ProviderGemini,
		},
		{
			name:   "uses configured default",
			config: domain.Config{DefaultProvider: "Claude"},
			want:   "claude",
		},
		{
			name:     "override wins and is lowercased",
			config:   domain.Config{DefaultProvider: "claude"},
			override: " CODEX ",
			want:     "codex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.ProviderName(tt.override); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// TestConfig_Durations tests duration parsing with fallbacks
func TestConfig_Durations(t *testing.T) {
	tests := []struct {
		name string
		ttl  string
		want time.Duration
	}{
		{name: "empty uses default", ttl: "", want: domain.DefaultCacheTTL},
		{name: "valid value", ttl: "30m", want: 30 * time.Minute},
		{name: "invalid value uses default", ttl: "soon", want: domain.DefaultCacheTTL},
		{name: "negative value uses default", ttl: "-5m", want: domain.DefaultCacheTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.Config{Cache: domain.CacheSettings{TTL: tt.ttl}}
			if got := cfg.CacheTTL(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// TestConfig_Limits tests that zero values resolve to defaults
func TestConfig_Limits(t *testing.T) {
	var cfg domain.Config

	if got := cfg.HistoryMaxEntries(); got != 100 {
		t.Errorf("HistoryMaxEntries = %d, want 100", got)
	}
	if got := cfg.BatchMaxParallel(); got != 4 {
		t.Errorf("BatchMaxParallel = %d, want 4", got)
	}
	if got := cfg.BatchMaxDepth(); got != 3 {
		t.Errorf("BatchMaxDepth = %d, want 3", got)
	}
	if got := cfg.HistoryContextK(); got != 3 {
		t.Errorf("HistoryContextK = %d, want 3", got)
	}
	if got := cfg.GetExecutionShell(); got != "sh" {
		t.Errorf("GetExecutionShell = %s, want sh", got)
	}
}

// TestConfig_PrewarmProviders tests de-duplication and default inclusion
func TestConfig_PrewarmProviders(t *testing.T) {
	cfg := domain.Config{
		DefaultProvider: "gemini",
		Daemon: domain.DaemonSettings{
			PrewarmProviders: []string{"Gemini", "claude", "", "claude"},
		},
	}

	got := cfg.PrewarmProviders()
	want := []string{"gemini", "claude"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBlockedErrorKindRoundTrip(t *testing.T) {
	err := &domain.BlockedError{Command: "rm -rf /"}
	kind := domain.ErrorKind(err)
	if kind != domain.KindBlocked {
		t.Fatalf("kind = %s, want %s", kind, domain.KindBlocked)
	}
	rebuilt := domain.ErrorFromKind(kind, err.Error())
	if rebuilt.Error() != err.Error() {
		t.Fatalf("message changed: %q", rebuilt.Error())
	}
	if !errors.Is(rebuilt, domain.ErrBlocked) {
		t.Fatal("rebuilt error should match ErrBlocked")
	}
}
