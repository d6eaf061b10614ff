package domain

import "time"

// GenerateRequest is the input of the generation pipeline.
type GenerateRequest struct {
	Prompt     string
	Provider   string
	UseCache   bool
	WorkingDir string
	// Project, when set, replaces on-disk detection of WorkingDir.
	Project *Project
}

// GenerateResult is what the pipeline hands back: command, risk and whether it came from cache.
type GenerateResult struct {
	Command  string
	Risk     RiskAssessment
	CacheHit bool
	Provider string
}

// QueryRequest captures a single interactive invocation.
type QueryRequest struct {
	Prompt          string
	Provider        string
	NoCache         bool
	PreviewOnly     bool
	AutoApprove     bool
	CopyToClipboard bool
	Direct          bool
}

// QueryResponse is propagated back to the CLI for rendering.
type QueryResponse struct {
	Result          GenerateResult
	Prompt          string
	ViaDaemon       bool
	ExecutionResult *ExecutionResult
}

// ExecutionResult wraps details from the command executor.
type ExecutionResult struct {
	Ran      bool
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Err      error
}

// Success reports a zero exit status with no launch error.
func (r ExecutionResult) Success() bool {
	return r.Ran && r.Err == nil && r.ExitCode == 0
}

// ProgressStage names a pipeline step reported to progress renderers.
type ProgressStage string

const (
	StageCacheLookup ProgressStage = "cache_lookup"
	StageRetrieve    ProgressStage = "retrieve_context"
	StageProvider    ProgressStage = "provider_call"
	StageClassify    ProgressStage = "classify"
	StagePersist     ProgressStage = "persist"
	StageDaemon      ProgressStage = "daemon_request"
)
