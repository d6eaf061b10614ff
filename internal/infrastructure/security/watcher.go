package security

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// ReloadingGuardrail serves Evaluate from the latest successfully parsed rules
// file. A broken edit keeps the previous rules in force.
type ReloadingGuardrail struct {
	current atomic.Pointer[Guardrail]
	path    string
	logger  ports.Logger
	// reloaded, when set, is signalled after every reload attempt (tests).
	reloaded chan<- error
}

// NewReloadingGuardrail builds the initial guardrail from path.
func NewReloadingGuardrail(path string, logger ports.Logger) (*ReloadingGuardrail, error) {
	g, err := NewGuardrail(path)
	if err != nil {
		return nil, err
	}
	r := &ReloadingGuardrail{path: g.Source(), logger: logger}
	r.current.Store(g)
	return r, nil
}

// Evaluate implements ports.SecurityService.
func (r *ReloadingGuardrail) Evaluate(command string) (domain.RiskAssessment, error) {
	return r.current.Load().Evaluate(command)
}

// Watch reloads rules whenever the file changes, until ctx is cancelled.
// The parent directory is watched so editors that replace the file are seen.
func (r *ReloadingGuardrail) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			r.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("rules watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (r *ReloadingGuardrail) reload() {
	g, err := NewGuardrail(r.path)
	if err != nil {
		r.logger.Warn("keeping previous rules", map[string]interface{}{"path": r.path, "error": err.Error()})
	} else {
		r.current.Store(g)
		r.logger.Info("rules reloaded", map[string]interface{}{"path": r.path, "rules": g.RuleCount()})
	}
	if r.reloaded != nil {
		select {
		case r.reloaded <- err:
		default:
		}
	}
}

var _ ports.SecurityService = (*ReloadingGuardrail)(nil)
