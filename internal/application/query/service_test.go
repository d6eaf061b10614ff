package query

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/history"
	"github.com/doeshing/askai-go/internal/pkg/logger"
)

type fakeGenerator struct {
	result domain.GenerateResult
	err    error
	calls  int
	last   domain.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	g.calls++
	g.last = req
	return g.result, g.err
}

type fakeExecutor struct {
	exitCode int
	err      error
	commands []string
}

func (e *fakeExecutor) Execute(_ context.Context, _ string, command string) (domain.ExecutionResult, error) {
	e.commands = append(e.commands, command)
	return domain.ExecutionResult{Ran: e.err == nil, ExitCode: e.exitCode, Err: e.err}, e.err
}

type fakePrompter struct {
	answer  bool
	enabled bool
	asked   int
}

func (p *fakePrompter) Confirm(domain.RiskAssessment, string) (bool, error) {
	p.asked++
	return p.answer, nil
}

func (p *fakePrompter) Enabled() bool { return p.enabled }

type fakeClipboard struct{ copied []string }

func (c *fakeClipboard) Copy(text string) error {
	c.copied = append(c.copied, text)
	return nil
}

func (c *fakeClipboard) Enabled() bool { return true }

type fakeRecorder struct {
	prompts []string
	codes   []int
}

func (r *fakeRecorder) RecordExecution(_ context.Context, prompt, _ string, exitCode int) error {
	r.prompts = append(r.prompts, prompt)
	r.codes = append(r.codes, exitCode)
	return nil
}

func lowRisk(command string) domain.GenerateResult {
	return domain.GenerateResult{
		Command:  command,
		Risk:     domain.RiskAssessment{Level: domain.RiskLow},
		Provider: domain.ProviderGemini,
	}
}

func newService(local *fakeGenerator) (*Service, *fakeExecutor, *fakePrompter) {
	exec := &fakeExecutor{}
	prompter := &fakePrompter{answer: true, enabled: true}
	return &Service{
		Local:    local,
		Executor: exec,
		Prompter: prompter,
		Logger:   logger.NewNop(),
	}, exec, prompter
}

func TestQueryFallsBackWhenDaemonUnavailable(t *testing.T) {
	for _, daemonErr := range []error{
		fmt.Errorf("%w: dial", domain.ErrDaemonNotRunning),
		fmt.Errorf("%w: read", domain.ErrIPCTimeout),
	} {
		t.Run(daemonErr.Error(), func(t *testing.T) {
			local := &fakeGenerator{result: lowRisk("ls -la")}
			svc, _, _ := newService(local)
			remote := &fakeGenerator{err: daemonErr}
			svc.Remote = remote

			resp, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: "list files", PreviewOnly: true})
			require.NoError(t, err)
			assert.False(t, resp.ViaDaemon)
			assert.Equal(t, "ls -la", resp.Result.Command)
			assert.Equal(t, 1, remote.calls)
			assert.Equal(t, 1, local.calls)
		})
	}
}

func TestQueryDaemonErrorsAreNotMasked(t *testing.T) {
	local := &fakeGenerator{result: lowRisk("ls")}
	svc, exec, _ := newService(local)
	svc.Remote = &fakeGenerator{err: &domain.BlockedError{Command: "rm -rf /"}}

	_, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: "wipe", AutoApprove: true})
	assert.True(t, errors.Is(err, domain.ErrBlocked))
	assert.Equal(t, 0, local.calls)
	assert.Empty(t, exec.commands)
}

func TestQueryDirectSkipsDaemon(t *testing.T) {
	local := &fakeGenerator{result: lowRisk("pwd")}
	svc, _, _ := newService(local)
	remote := &fakeGenerator{result: lowRisk("pwd")}
	svc.Remote = remote

	resp, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: " current directory ", Direct: true, NoCache: true, PreviewOnly: true})
	require.NoError(t, err)
	assert.False(t, resp.ViaDaemon)
	assert.Equal(t, 0, remote.calls)
	assert.Equal(t, "current directory", local.last.Prompt)
	assert.False(t, local.last.UseCache)
}

func TestQueryExecutionDecision(t *testing.T) {
	medium := domain.GenerateResult{
		Command: "sudo apt update",
		Risk:    domain.RiskAssessment{Level: domain.RiskMedium, Reasons: []string{"Privilege escalation"}},
	}
	tests := []struct {
		name      string
		result    domain.GenerateResult
		req       domain.QueryRequest
		autoSafe  bool
		answer    bool
		enabled   bool
		wantRun   bool
		wantAsked int
	}{
		{name: "preview", result: lowRisk("ls"), req: domain.QueryRequest{PreviewOnly: true, AutoApprove: true}, enabled: true},
		{name: "yes flag", result: medium, req: domain.QueryRequest{AutoApprove: true}, enabled: true, wantRun: true},
		{name: "auto approve safe", result: lowRisk("ls"), autoSafe: true, enabled: true, wantRun: true},
		{name: "auto approve safe ignores medium", result: medium, autoSafe: true, answer: false, enabled: true, wantAsked: 1},
		{name: "confirmed", result: medium, answer: true, enabled: true, wantRun: true, wantAsked: 1},
		{name: "declined", result: medium, answer: false, enabled: true, wantAsked: 1},
		{name: "non interactive", result: lowRisk("ls"), enabled: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, exec, prompter := newService(&fakeGenerator{result: tt.result})
			svc.Config.AutoApproveSafe = tt.autoSafe
			prompter.answer = tt.answer
			prompter.enabled = tt.enabled

			tt.req.Prompt = "do it"
			resp, err := svc.Run(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRun, len(exec.commands) == 1)
			assert.Equal(t, tt.wantRun, resp.ExecutionResult != nil)
			assert.Equal(t, tt.wantAsked, prompter.asked)
		})
	}
}

func TestQueryRecordsExecutionLocally(t *testing.T) {
	store := history.NewFileStore(filepath.Join(t.TempDir(), "history.json"), 10, nil)
	require.NoError(t, store.Append(domain.HistoryRecord{Timestamp: time.Now(), Prompt: "fail please", Command: "false"}))

	svc, exec, _ := newService(&fakeGenerator{result: lowRisk("false")})
	svc.History = store
	exec.exitCode = 1

	resp, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: "fail please", AutoApprove: true})
	require.NoError(t, err)
	require.NotNil(t, resp.ExecutionResult)
	assert.Equal(t, 1, resp.ExecutionResult.ExitCode)

	records, err := store.Records(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Executed)
	assert.False(t, records[0].Success)
}

func TestQueryRecordsExecutionThroughDaemon(t *testing.T) {
	svc, _, _ := newService(&fakeGenerator{})
	svc.Remote = &fakeGenerator{result: lowRisk("date")}
	recorder := &fakeRecorder{}
	svc.RemoteRecorder = recorder

	resp, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: "현재 시간", AutoApprove: true})
	require.NoError(t, err)
	assert.True(t, resp.ViaDaemon)
	assert.Equal(t, []string{"현재 시간"}, recorder.prompts)
	assert.Equal(t, []int{0}, recorder.codes)
}

func TestQueryCopiesToClipboard(t *testing.T) {
	svc, _, _ := newService(&fakeGenerator{result: lowRisk("git status")})
	clip := &fakeClipboard{}
	svc.Clipboard = clip

	_, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: "git 상태", CopyToClipboard: true, PreviewOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"git status"}, clip.copied)
}

func TestQueryRejectsEmptyPrompt(t *testing.T) {
	svc, _, _ := newService(&fakeGenerator{})
	_, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: "   "})
	assert.Error(t, err)
}

func TestQueryExecutionFailureIsReported(t *testing.T) {
	svc, exec, _ := newService(&fakeGenerator{result: lowRisk("ls")})
	exec.err = errors.New("no shell")

	resp, err := svc.Run(context.Background(), domain.QueryRequest{Prompt: "list", AutoApprove: true})
	require.Error(t, err)
	require.NotNil(t, resp.ExecutionResult)
	assert.False(t, resp.ExecutionResult.Ran)
}
