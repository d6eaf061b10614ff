package ai

import (
	"os"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
)

func resolveAuth(primary string, fallbacks ...string) string {
	for _, name := range append([]string{primary}, fallbacks...) {
		if name == "" {
			continue
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

func valueOrDefault(value string, def string) string {
	if value == "" {
		return def
	}
	return value
}

// providerTimeout parses the per-provider timeout, defaulting to domain.DefaultProviderTimeout.
func providerTimeout(settings domain.ProviderSettings) time.Duration {
	if settings.Timeout == "" {
		return domain.DefaultProviderTimeout
	}
	d, err := time.ParseDuration(settings.Timeout)
	if err != nil || d <= 0 {
		return domain.DefaultProviderTimeout
	}
	return d
}
