// Package ai provides the command generator variants and the gateway that
// dispatches provider identifiers to them.
//
// The provider set is closed:
//   - gemini, claude, codex: local CLI tools invoked as subprocesses
//   - ollama: a local or remote Ollama server via its Go API client
//   - gemini-api: the Gemini API via the genai SDK
//
// Every variant renders the same prompt template and runs the raw output
// through the same response cleaner, so callers only ever see a single
// command line or a domain error.
package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/logger"
	"github.com/doeshing/askai-go/internal/ports"
)

// ====================================================================================
// Gateway
// ====================================================================================

// Gateway constructs providers on first use and keeps them, so availability
// probes are paid once per process (once per daemon lifetime).
type Gateway struct {
	cfg    domain.Config
	logger ports.Logger

	mu        sync.Mutex
	providers map[string]ports.Provider
}

// NewGateway creates a gateway for cfg.
func NewGateway(cfg domain.Config, log ports.Logger) *Gateway {
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{cfg: cfg, logger: log, providers: map[string]ports.Provider{}}
}

// Names lists every provider identifier the gateway understands.
func Names() []string {
	return domain.KnownProviders()
}

// Provider returns the instance for name, building it on first use.
// Identifiers are case-insensitive; unknown ones wrap domain.ErrUnknownProvider.
func (g *Gateway) Provider(name string) (ports.Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.providers[name]; ok {
		return p, nil
	}
	p, err := g.build(name)
	if err != nil {
		return nil, err
	}
	g.providers[name] = p
	g.logger.Debug("provider loaded", map[string]interface{}{"provider": name})
	return p, nil
}

// Loaded lists the providers constructed so far, sorted.
func (g *Gateway) Loaded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Gateway) build(name string) (ports.Provider, error) {
	settings := g.cfg.ProviderSettingsFor(name)
	switch name {
	case domain.ProviderGemini:
		return newCLIProvider(cliSpec{
			name:   name,
			binary: valueOrDefault(settings.Command, "gemini"),
			hint:   "install the Gemini CLI: npm install -g @google/gemini-cli",
		}, settings), nil
	case domain.ProviderClaude:
		return newCLIProvider(cliSpec{
			name:   name,
			binary: valueOrDefault(settings.Command, "claude"),
			args:   []string{"-p"},
			hint:   "install the Claude CLI: npm install -g @anthropic-ai/claude-code",
		}, settings), nil
	case domain.ProviderCodex:
		return newCLIProvider(cliSpec{
			name:   name,
			binary: valueOrDefault(settings.Command, "codex"),
			args:   []string{"exec"},
			hint:   "install the Codex CLI: npm install -g @openai/codex",
			rules:  "- Be concise and use standard Unix commands",
		}, settings), nil
	case domain.ProviderOllama:
		return newOllamaProvider(settings)
	case domain.ProviderGeminiAPI:
		return newGeminiAPIProvider(settings), nil
	default:
		return nil, fmt.Errorf("%w: %q (known: %s)", domain.ErrUnknownProvider, name, strings.Join(Names(), ", "))
	}
}

var _ ports.ProviderGateway = (*Gateway)(nil)
