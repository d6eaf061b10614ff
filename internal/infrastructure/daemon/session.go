package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/cache"
	"github.com/doeshing/askai-go/internal/ports"
)

// Session is the state shared by every request the daemon serves: the
// in-memory cache, loaded providers and history. It lives as long as the
// process.
type Session struct {
	Generator ports.Generator
	Cache     ports.ResponseCache
	Gateway   ports.ProviderGateway
	History   ports.HistoryStore
	Logger    ports.Logger

	// Providers are loaded and probed at startup; their prompts are prewarmed.
	Providers []string

	mu       sync.RWMutex
	started  time.Time
	served   int64
	inflight int
}

// Warm seeds the cache with the common prompts and loads the configured
// providers so the first real request skips construction and probing.
func (s *Session) Warm(ctx context.Context) {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	if n, err := s.Cache.Prewarm(cache.CommonPrompts(s.Providers...)); err != nil {
		s.Logger.Warn("cache prewarm failed", map[string]interface{}{"error": err.Error()})
	} else {
		s.Logger.Info("cache prewarmed", map[string]interface{}{"entries": n})
	}

	for _, name := range s.Providers {
		provider, err := s.Gateway.Provider(name)
		if err != nil {
			s.Logger.Warn("provider not loaded", map[string]interface{}{"provider": name, "error": err.Error()})
			continue
		}
		s.Logger.Info("provider loaded", map[string]interface{}{
			"provider":  name,
			"available": provider.Available(ctx),
		})
	}
}

// Generate runs one request through the pipeline and counts it.
func (s *Session) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.served++
		s.mu.Unlock()
	}()
	return s.Generator.Generate(ctx, req)
}

// RecordExecution stores the outcome of a command the client ran.
func (s *Session) RecordExecution(prompt, command string, exitCode int) error {
	if s.History == nil {
		return nil
	}
	return s.History.MarkExecuted(prompt, command, exitCode)
}

// Status snapshots the session for a status query.
func (s *Session) Status(pid int, state domain.DaemonState) domain.DaemonStatus {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	status := domain.DaemonStatus{
		State:           state,
		PID:             pid,
		LoadedProviders: s.Gateway.Loaded(),
		CacheEntries:    s.Cache.Stats().Entries,
	}
	if !started.IsZero() {
		status.Uptime = time.Since(started)
	}
	return status
}

// Counters returns the served and in-flight request counts.
func (s *Session) Counters() (served int64, inflight int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.served, s.inflight
}
