// Package batch runs one prompt across every project under a root directory.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Service discovers projects, generates a command per project and executes the
// commands with at most MaxParallel shells running at once.
type Service struct {
	Config    domain.Config
	Scanner   ports.ProjectScanner
	Generator ports.Generator
	Executor  ports.CommandExecutor
	// Prompter confirms the whole plan once; nil or disabled skips execution
	// unless the request auto-approves.
	Prompter ports.ConfirmationPrompter
	Logger   ports.Logger
	// OnPlan is called with every target before anything executes.
	OnPlan func([]domain.BatchTarget)
	// OnResult is called as each target finishes. Calls are serialized.
	OnResult func(domain.BatchResult)
	Now      func() time.Time
}

// Run executes a full batch. The summary holds exactly one result per
// discovered project; per-project failures never abort siblings.
func (s *Service) Run(ctx context.Context, req domain.BatchRequest) (domain.BatchSummary, error) {
	if s.Scanner == nil || s.Generator == nil || s.Executor == nil || s.Logger == nil {
		return domain.BatchSummary{}, errors.New("batch.Service dependencies not satisfied")
	}
	req = s.withDefaults(req)
	started := s.now()

	projects, err := s.Discover(ctx, req)
	if err != nil {
		return domain.BatchSummary{}, err
	}
	s.Logger.Info("batch discovered projects", map[string]interface{}{
		"root":     req.Root,
		"projects": len(projects),
	})
	if len(projects) == 0 {
		return domain.Summarize(nil, s.now().Sub(started)), nil
	}

	targets := s.Plan(ctx, req, projects)
	if s.OnPlan != nil {
		s.OnPlan(targets)
	}

	var results []domain.BatchResult
	switch {
	case req.DryRun:
		results = skipAll(targets, nil)
	case !s.approved(req, targets):
		results = skipAll(targets, errors.New("declined"))
	default:
		results = s.Execute(ctx, targets, req.MaxParallel)
	}
	return domain.Summarize(results, s.now().Sub(started)), nil
}

// Discover scans req.Root and applies the kind filter.
func (s *Service) Discover(ctx context.Context, req domain.BatchRequest) ([]domain.Project, error) {
	projects, err := s.Scanner.Scan(ctx, req.Root, req.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("discover projects: %w", err)
	}
	return domain.FilterByKind(projects, req.Kind), nil
}

// Plan generates a command per project, at most maxParallel provider calls at
// a time. Generation errors are recorded on the target.
func (s *Service) Plan(ctx context.Context, req domain.BatchRequest, projects []domain.Project) []domain.BatchTarget {
	targets := make([]domain.BatchTarget, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.MaxParallel)
	for i := range projects {
		project := projects[i]
		g.Go(func() error {
			result, err := s.Generator.Generate(gctx, domain.GenerateRequest{
				Prompt:     req.Prompt,
				Provider:   req.Provider,
				UseCache:   req.UseCache,
				WorkingDir: project.Path,
				Project:    &project,
			})
			targets[i] = domain.BatchTarget{
				Project:  project,
				Command:  result.Command,
				Risk:     result.Risk,
				CacheHit: result.CacheHit,
				Err:      err,
			}
			if err != nil {
				s.Logger.Warn("batch generation failed", map[string]interface{}{"project": project.Path, "error": err.Error()})
			}
			return nil
		})
	}
	_ = g.Wait()
	return targets
}

// Execute runs every runnable target on a fixed pool of maxParallel workers.
// Results keep the order of targets.
func (s *Service) Execute(ctx context.Context, targets []domain.BatchTarget, maxParallel int) []domain.BatchResult {
	if maxParallel <= 0 {
		maxParallel = domain.DefaultMaxParallel
	}
	results := make([]domain.BatchResult, len(targets))
	jobs := make(chan int)
	var report sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < maxParallel && w < len(targets); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.executeOne(ctx, targets[i])
				if s.OnResult != nil {
					report.Lock()
					s.OnResult(results[i])
					report.Unlock()
				}
			}
		}()
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func (s *Service) executeOne(ctx context.Context, target domain.BatchTarget) domain.BatchResult {
	result := domain.BatchResult{
		Target:   target.Project,
		Command:  target.Command,
		CacheHit: target.CacheHit,
	}
	if target.Err != nil {
		result.Err = target.Err
		result.Skipped = errors.Is(target.Err, domain.ErrBlocked)
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	run, err := s.Executor.Execute(ctx, target.Project.Path, target.Command)
	result.ExitStatus = run.ExitCode
	result.Duration = run.Duration
	result.Output = strings.TrimSpace(run.Stdout + run.Stderr)
	if err != nil {
		result.Err = err
	}
	return result
}

// approved asks once for the whole plan. Blocked and failed targets never run,
// so only runnable commands are shown.
func (s *Service) approved(req domain.BatchRequest, targets []domain.BatchTarget) bool {
	var commands []string
	seen := map[string]bool{}
	worst := domain.RiskAssessment{Level: domain.RiskLow}
	for _, t := range targets {
		if t.Err != nil {
			continue
		}
		if t.Risk.Level.Severity() > worst.Level.Severity() {
			worst = t.Risk
		}
		if !seen[t.Command] {
			seen[t.Command] = true
			commands = append(commands, t.Command)
		}
	}
	if len(commands) == 0 {
		return true
	}
	if req.AutoApprove {
		return true
	}
	if s.Prompter == nil || !s.Prompter.Enabled() {
		return false
	}
	ok, err := s.Prompter.Confirm(worst, strings.Join(commands, "\n"))
	if err != nil {
		s.Logger.Warn("batch confirmation failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return ok
}

func (s *Service) withDefaults(req domain.BatchRequest) domain.BatchRequest {
	if req.MaxParallel <= 0 {
		req.MaxParallel = s.Config.BatchMaxParallel()
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = s.Config.BatchMaxDepth()
	}
	if req.Root == "" {
		req.Root = "."
	}
	return req
}

func skipAll(targets []domain.BatchTarget, reason error) []domain.BatchResult {
	results := make([]domain.BatchResult, len(targets))
	for i, t := range targets {
		results[i] = domain.BatchResult{
			Target:   t.Project,
			Command:  t.Command,
			CacheHit: t.CacheHit,
			Skipped:  t.Err == nil || errors.Is(t.Err, domain.ErrBlocked),
			Err:      t.Err,
		}
		if results[i].Skipped && t.Err == nil {
			results[i].Err = reason
		}
	}
	return results
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
