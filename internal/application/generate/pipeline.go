// Package generate implements the generation pipeline: cache lookup, context
// retrieval, provider call, risk classification and persistence.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Pipeline turns a prompt into a classified command. Cache, History, Retriever,
// Collector and Progress are optional; a nil one is skipped.
//
// The same Pipeline serves direct mode (disk cache) and the daemon (in-memory
// cache); it holds no locks of its own, so concurrent Generate calls only
// contend inside the cache and history implementations.
type Pipeline struct {
	Config    domain.Config
	Gateway   ports.ProviderGateway
	Security  ports.SecurityService
	Cache     ports.ResponseCache
	History   ports.HistoryStore
	Retriever ports.ContextRetriever
	Collector ports.ContextCollector
	Progress  ports.ProgressReporter
	Logger    ports.Logger
	Now       func() time.Time
}

// Generate implements ports.Generator. Provider failures are returned as-is and
// never retried. A Blocked verdict returns a *domain.BlockedError and a result
// without a command.
func (p *Pipeline) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if p.Gateway == nil || p.Security == nil || p.Logger == nil {
		return domain.GenerateResult{}, errors.New("generate.Pipeline dependencies not satisfied")
	}
	defer p.done()

	name := p.Config.ProviderName(req.Provider)
	provider, err := p.Gateway.Provider(name)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	result := domain.GenerateResult{Provider: name}

	if req.UseCache && p.Cache != nil {
		p.stage(domain.StageCacheLookup)
		if command, ok := p.Cache.Get(req.Prompt, name); ok {
			p.Logger.Debug("cache hit", map[string]interface{}{"provider": name})
			result.CacheHit = true
			return p.classify(command, result)
		}
	}

	p.stage(domain.StageRetrieve)
	snapshot := p.collect(ctx, req)

	p.stage(domain.StageProvider)
	started := p.now()
	resp, err := provider.Generate(ctx, ports.ProviderRequest{Prompt: req.Prompt, Context: snapshot})
	if err != nil {
		p.Logger.Debug("provider failed", map[string]interface{}{"provider": name, "error": err.Error()})
		return result, err
	}
	p.Logger.Debug("provider answered", map[string]interface{}{
		"provider": name,
		"elapsed":  p.now().Sub(started).String(),
	})

	p.stage(domain.StageClassify)
	result, err = p.classify(resp.Command, result)
	if err != nil {
		return result, err
	}

	p.stage(domain.StagePersist)
	p.persist(req, result)
	return result, nil
}

// classify attaches the risk verdict and withholds blocked commands.
func (p *Pipeline) classify(command string, result domain.GenerateResult) (domain.GenerateResult, error) {
	risk, err := p.Security.Evaluate(command)
	if err != nil {
		return domain.GenerateResult{Provider: result.Provider}, fmt.Errorf("classify: %w", err)
	}
	result.Risk = risk
	if risk.Blocked() {
		p.Logger.Warn("command blocked", map[string]interface{}{"provider": result.Provider, "reasons": risk.Reasons})
		result.Command = ""
		return result, &domain.BlockedError{Command: command, Reasons: risk.Reasons}
	}
	result.Command = command
	return result, nil
}

// collect builds the provider context. Failures degrade to a bare snapshot.
func (p *Pipeline) collect(ctx context.Context, req domain.GenerateRequest) domain.ContextSnapshot {
	snapshot := domain.ContextSnapshot{WorkingDir: req.WorkingDir}
	if p.Collector != nil {
		collected, err := p.Collector.Collect(ctx, p.Config, req.WorkingDir)
		if err != nil {
			p.Logger.Warn("context collection failed", map[string]interface{}{"error": err.Error()})
		} else {
			snapshot = collected
		}
	}
	if req.Project != nil {
		snapshot.Project = req.Project
	}

	if p.Config.EnableRAG && p.Retriever != nil {
		related, err := p.Retriever.Retrieve(req.Prompt, p.Config.HistoryContextK())
		if err != nil {
			p.Logger.Warn("history retrieval failed", map[string]interface{}{"error": err.Error()})
		} else {
			snapshot.RelatedHistory = related
		}
	}
	return snapshot
}

// persist writes history and cache. Both are best-effort.
func (p *Pipeline) persist(req domain.GenerateRequest, result domain.GenerateResult) {
	if p.History != nil {
		err := p.History.Append(domain.HistoryRecord{
			Timestamp: p.now(),
			Prompt:    req.Prompt,
			Command:   result.Command,
			Provider:  result.Provider,
			RiskLevel: result.Risk.Level,
		})
		if err != nil {
			p.Logger.Warn("history write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if p.Cache != nil {
		if err := p.Cache.Put(req.Prompt, result.Provider, result.Command); err != nil {
			p.Logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (p *Pipeline) stage(stage domain.ProgressStage) {
	if p.Progress != nil {
		p.Progress.Stage(stage)
	}
}

func (p *Pipeline) done() {
	if p.Progress != nil {
		p.Progress.Done()
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

var _ ports.Generator = (*Pipeline)(nil)
