package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Service orchestrates a single interactive query end-to-end: generate
// (through the daemon when one answers), copy, confirm, execute and record.
type Service struct {
	Config domain.Config
	// Remote is the daemon client; nil disables daemon mode.
	Remote         ports.Generator
	RemoteRecorder ports.ExecutionRecorder
	// Local is the in-process pipeline used directly or as fallback.
	Local      ports.Generator
	History    ports.HistoryStore
	Executor   ports.CommandExecutor
	Prompter   ports.ConfirmationPrompter
	Clipboard  ports.Clipboard
	Progress   ports.ProgressReporter
	Logger     ports.Logger
	WorkingDir string
}

// Run processes a single natural-language query. Generation and safety
// failures are returned verbatim; the response still carries the provider
// and risk verdict for rendering.
func (s *Service) Run(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	if s.Local == nil || s.Executor == nil || s.Logger == nil {
		return domain.QueryResponse{}, errors.New("query.Service dependencies not satisfied")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return domain.QueryResponse{}, errors.New("empty prompt")
	}

	greq := domain.GenerateRequest{
		Prompt:     prompt,
		Provider:   req.Provider,
		UseCache:   !req.NoCache,
		WorkingDir: s.WorkingDir,
	}
	result, viaDaemon, err := s.generate(ctx, greq, req.Direct)
	resp := domain.QueryResponse{Result: result, Prompt: prompt, ViaDaemon: viaDaemon}
	if err != nil {
		return resp, err
	}

	if req.CopyToClipboard && s.Clipboard != nil && s.Clipboard.Enabled() {
		if err := s.Clipboard.Copy(result.Command); err != nil {
			s.Logger.Warn("clipboard copy failed", map[string]interface{}{"error": err.Error()})
		}
	}

	run, err := s.decideExecution(req, result.Risk, result.Command)
	if err != nil || !run {
		return resp, err
	}

	execResult, err := s.Executor.Execute(ctx, s.WorkingDir, result.Command)
	resp.ExecutionResult = &execResult
	if execResult.Ran {
		s.record(ctx, viaDaemon, prompt, result.Command, execResult.ExitCode)
	}
	if err != nil {
		return resp, fmt.Errorf("execute: %w", err)
	}
	return resp, nil
}

// generate prefers the daemon and falls back to the local pipeline when the
// daemon is missing or too slow. Any other daemon error is the caller's.
func (s *Service) generate(ctx context.Context, req domain.GenerateRequest, direct bool) (domain.GenerateResult, bool, error) {
	if s.Remote != nil && !direct {
		s.stage(domain.StageDaemon)
		result, err := s.Remote.Generate(ctx, req)
		switch {
		case err == nil:
			s.done()
			return result, true, nil
		case errors.Is(err, domain.ErrDaemonNotRunning), errors.Is(err, domain.ErrIPCTimeout):
			s.Logger.Debug("daemon unavailable, generating directly", map[string]interface{}{"error": err.Error()})
		default:
			s.done()
			return result, true, err
		}
	}
	result, err := s.Local.Generate(ctx, req)
	return result, false, err
}

func (s *Service) decideExecution(req domain.QueryRequest, risk domain.RiskAssessment, command string) (bool, error) {
	switch {
	case command == "" || risk.Blocked():
		return false, nil
	case req.PreviewOnly:
		return false, nil
	case req.AutoApprove:
		return true, nil
	case s.Config.AutoApproveSafe && risk.Level == domain.RiskLow:
		return true, nil
	case s.Prompter == nil || !s.Prompter.Enabled():
		return false, nil
	}
	ok, err := s.Prompter.Confirm(risk, command)
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}

// record stores the execution outcome with whichever side owns the history.
func (s *Service) record(ctx context.Context, viaDaemon bool, prompt, command string, exitCode int) {
	var err error
	switch {
	case viaDaemon && s.RemoteRecorder != nil:
		err = s.RemoteRecorder.RecordExecution(ctx, prompt, command, exitCode)
	case s.History != nil:
		err = s.History.MarkExecuted(prompt, command, exitCode)
	}
	if err != nil {
		s.Logger.Warn("record execution failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) stage(stage domain.ProgressStage) {
	if s.Progress != nil {
		s.Progress.Stage(stage)
	}
}

func (s *Service) done() {
	if s.Progress != nil {
		s.Progress.Done()
	}
}
