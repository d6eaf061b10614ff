// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The generation pipeline, batch executor and daemon
// depend only on these abstractions, so the same pipeline runs in direct mode
// (disk cache, file history) and inside the daemon (in-memory cache, shared
// history) without change.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Provider, ResponseCache)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"

	"github.com/doeshing/askai-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.askai/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ContextCollector gathers environmental context (shell, OS, git, project kind)
// for the directory a command will run in.
type ContextCollector interface {
	Collect(ctx context.Context, cfg domain.Config, dir string) (domain.ContextSnapshot, error)
}

// ProjectDetector classifies a single directory by its marker files.
type ProjectDetector interface {
	Detect(dir string) domain.Project
}

// ProjectScanner discovers candidate project directories under a root.
type ProjectScanner interface {
	Scan(ctx context.Context, root string, maxDepth int) ([]domain.Project, error)
}

// HistoryStore is the bounded, append-only log of past generations.
// A failed persist is reported to the caller, which logs it and carries on.
type HistoryStore interface {
	Append(domain.HistoryRecord) error
	// Records returns a snapshot, oldest first. limit <= 0 means all.
	Records(limit int) ([]domain.HistoryRecord, error)
	// MarkExecuted records the outcome on the newest unexecuted record for
	// (prompt, command). A missing record is not an error.
	MarkExecuted(prompt, command string, exitCode int) error
	Clear() error
	Path() string
}

// ContextRetriever selects prior records relevant to a new prompt.
type ContextRetriever interface {
	Retrieve(prompt string, k int) ([]domain.HistoryRecord, error)
}

// ResponseCache maps a normalized (prompt, provider) pair to a generated command.
// Implementations must treat expired entries as absent.
type ResponseCache interface {
	Get(prompt, provider string) (string, bool)
	Put(prompt, provider, command string) error
	Clear() error
	Prewarm(entries []domain.PrewarmEntry) (int, error)
	Stats() domain.CacheStats
}

// Provider is one variant of the external generator.
type Provider interface {
	Name() string
	// Available is memoized for the lifetime of the provider instance.
	Available(context.Context) bool
	Generate(context.Context, ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest contains all data needed to generate a command.
type ProviderRequest struct {
	Prompt  string
	Context domain.ContextSnapshot
}

// ProviderResponse holds the cleaned command and the raw generator output.
type ProviderResponse struct {
	Command string
	Raw     string
}

// ProviderGateway dispatches provider identifiers to variants and keeps
// constructed instances alive so availability probes are not repeated.
type ProviderGateway interface {
	Provider(name string) (Provider, error)
	Loaded() []string
}

// Generator is anything that turns a request into a classified command:
// the in-process pipeline or the daemon client.
type Generator interface {
	Generate(context.Context, domain.GenerateRequest) (domain.GenerateResult, error)
}

// ExecutionRecorder stores the outcome of a command the user ran, either in
// the local history or through the daemon that owns it.
type ExecutionRecorder interface {
	RecordExecution(ctx context.Context, prompt, command string, exitCode int) error
}

// SecurityService classifies commands. It never blocks on I/O.
type SecurityService interface {
	Evaluate(command string) (domain.RiskAssessment, error)
}

// CommandExecutor runs shell commands in the configured shell environment.
type CommandExecutor interface {
	Execute(ctx context.Context, dir, command string) (domain.ExecutionResult, error)
}

// ConfirmationPrompter handles interactive user confirmations.
type ConfirmationPrompter interface {
	Confirm(risk domain.RiskAssessment, command string) (bool, error)
	Enabled() bool
}

// Clipboard provides cross-platform clipboard integration for copying commands.
type Clipboard interface {
	Copy(text string) error
	Enabled() bool
}

// ProgressReporter receives pipeline stage events. Rendering is up to the adapter.
type ProgressReporter interface {
	Stage(domain.ProgressStage)
	Done()
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stderr, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
