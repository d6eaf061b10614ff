package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	appconfig "github.com/doeshing/askai-go/internal/application/config"
	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// DaemonProbe reports the resident process state.
type DaemonProbe interface {
	Status(context.Context) (domain.DaemonStatus, error)
}

// hinter is implemented by providers that can explain how to install or configure them.
type hinter interface {
	Hint() string
}

// Service runs environment diagnostics.
type Service struct {
	Config     domain.Config
	ConfigPath string
	Security   ports.SecurityService
	Gateway    ports.ProviderGateway
	Daemon     DaemonProbe
	Cache      ports.ResponseCache
	History    ports.HistoryStore
	Collector  ports.ContextCollector
	// Providers to probe; empty means every known provider.
	Providers []string
}

// Run executes checks and returns a report. Checks never abort each other.
func (s *Service) Run(ctx context.Context) domain.HealthReport {
	var checks []domain.HealthCheck

	if err := appconfig.Validate(s.Config); err != nil {
		checks = append(checks, fail("Config", err.Error()))
	} else {
		checks = append(checks, ok("Config", s.ConfigPath))
	}

	checks = append(checks, s.guardrailCheck())
	checks = append(checks, s.providerChecks(ctx)...)
	if s.Daemon != nil {
		checks = append(checks, s.daemonCheck(ctx))
	}
	if s.Cache != nil {
		stats := s.Cache.Stats()
		checks = append(checks, ok("Cache", fmt.Sprintf("%d entries (%d expired), ttl %s, %s",
			stats.Entries, stats.Expired, stats.TTL, stats.Path)))
	}
	if s.History != nil {
		checks = append(checks, s.historyCheck())
	}
	if s.Collector != nil {
		if snapshot, err := s.Collector.Collect(ctx, s.Config, ""); err != nil {
			checks = append(checks, warn("Context", err.Error()))
		} else {
			checks = append(checks, ok("Context", fmt.Sprintf("shell %s, tools: %s", snapshot.Shell, strings.Join(snapshot.AvailableTools, ", "))))
		}
	}
	return domain.HealthReport{Checks: checks}
}

func (s *Service) guardrailCheck() domain.HealthCheck {
	if s.Security == nil {
		return warn("Guardrail", "not initialized")
	}
	risk, err := s.Security.Evaluate("rm -rf /")
	switch {
	case err != nil:
		return fail("Guardrail", err.Error())
	case !risk.Blocked():
		return fail("Guardrail", "deny list is not enforced")
	default:
		return ok("Guardrail", "deny list active")
	}
}

// providerChecks probes providers concurrently. Only the default provider
// being unavailable is an error.
func (s *Service) providerChecks(ctx context.Context) []domain.HealthCheck {
	if s.Gateway == nil {
		return []domain.HealthCheck{warn("Providers", "gateway not initialized")}
	}
	names := s.Providers
	if len(names) == 0 {
		names = domain.KnownProviders()
	}
	defaultName := s.Config.ProviderName("")

	checks := make([]domain.HealthCheck, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			label := "Provider " + name
			if name == defaultName {
				label += " (default)"
			}
			provider, err := s.Gateway.Provider(name)
			if err != nil {
				checks[i] = fail(label, err.Error())
				return nil
			}
			if provider.Available(ctx) {
				checks[i] = ok(label, "available")
				return nil
			}
			detail := "not available"
			if h, isHinter := provider.(hinter); isHinter && h.Hint() != "" {
				detail += ": " + h.Hint()
			}
			if name == defaultName {
				checks[i] = fail(label, detail)
			} else {
				checks[i] = warn(label, detail)
			}
			return nil
		})
	}
	_ = g.Wait()
	return checks
}

func (s *Service) daemonCheck(ctx context.Context) domain.HealthCheck {
	status, err := s.Daemon.Status(ctx)
	switch {
	case err == nil:
		return ok("Daemon", fmt.Sprintf("running (pid %d, %d cache entries)", status.PID, status.CacheEntries))
	case errors.Is(err, domain.ErrDaemonNotRunning):
		return warn("Daemon", "not running; queries use direct mode")
	default:
		return warn("Daemon", err.Error())
	}
}

func (s *Service) historyCheck() domain.HealthCheck {
	records, err := s.History.Records(0)
	if err != nil {
		return warn("History", err.Error())
	}
	return ok("History", fmt.Sprintf("%d records, %s", len(records), s.History.Path()))
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
