package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if cfg.DefaultProvider != "" && !domain.IsKnownProvider(cfg.DefaultProvider) {
		return fmt.Errorf("default_provider %q is not one of %s", cfg.DefaultProvider, strings.Join(domain.KnownProviders(), ", "))
	}
	for name := range cfg.Providers {
		if !domain.IsKnownProvider(name) {
			return fmt.Errorf("providers.%s: unknown provider", name)
		}
		if err := validateDuration("providers."+name+".timeout", cfg.Providers[name].Timeout); err != nil {
			return err
		}
	}
	for _, name := range cfg.Daemon.PrewarmProviders {
		if !domain.IsKnownProvider(name) {
			return fmt.Errorf("daemon.prewarm_providers: unknown provider %q", name)
		}
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	if err := validateCache(cfg.Cache); err != nil {
		return err
	}
	if err := validateDaemon(cfg.Daemon); err != nil {
		return err
	}
	if cfg.Batch.MaxParallel < 0 {
		return fmt.Errorf("batch.max_parallel must be >= 0")
	}
	if cfg.Batch.MaxDepth < 0 {
		return fmt.Errorf("batch.max_depth must be >= 0")
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	switch strings.ToLower(history.Backend) {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("history.backend must be file|sqlite, got %s", history.Backend)
	}
	if history.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must be >= 0")
	}
	if history.ContextK < 0 {
		return fmt.Errorf("history.context_k must be >= 0")
	}
	return nil
}

func validateCache(cache domain.CacheSettings) error {
	if err := validateDuration("cache.ttl", cache.TTL); err != nil {
		return err
	}
	if cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be >= 0")
	}
	return nil
}

func validateDaemon(daemon domain.DaemonSettings) error {
	if err := validateDuration("daemon.request_timeout", daemon.RequestTimeout); err != nil {
		return err
	}
	if err := validateDuration("daemon.client_timeout", daemon.ClientTimeout); err != nil {
		return err
	}
	if daemon.Workers < 0 {
		return fmt.Errorf("daemon.workers must be >= 0")
	}
	return nil
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s invalid: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}
