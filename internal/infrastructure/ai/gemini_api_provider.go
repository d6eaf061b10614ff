package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiAPIProvider talks to the Gemini API directly. The client is created on
// the first Generate so an unconfigured key costs nothing.
type geminiAPIProvider struct {
	model   string
	keyEnv  string
	timeout time.Duration

	probe  sync.Once
	apiKey string

	mu     sync.Mutex
	client *genai.Client
}

func newGeminiAPIProvider(settings domain.ProviderSettings) *geminiAPIProvider {
	return &geminiAPIProvider{
		model:   valueOrDefault(settings.Model, defaultGeminiModel),
		keyEnv:  settings.APIKeyEnv,
		timeout: providerTimeout(settings),
	}
}

func (g *geminiAPIProvider) Name() string {
	return domain.ProviderGeminiAPI
}

// Available reports whether an API key is configured.
func (g *geminiAPIProvider) Available(context.Context) bool {
	g.probe.Do(func() {
		g.apiKey = resolveAuth(g.keyEnv, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	})
	return g.apiKey != ""
}

// Hint explains how to make the provider available.
func (g *geminiAPIProvider) Hint() string {
	return "set GEMINI_API_KEY (or providers.gemini-api.api_key_env) in the environment or ~/.askai/.env"
}

func (g *geminiAPIProvider) Generate(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	if !g.Available(ctx) {
		return ports.ProviderResponse{}, &domain.ProviderUnavailableError{Provider: domain.ProviderGeminiAPI, Hint: g.Hint()}
	}

	client, err := g.clientFor(ctx)
	if err != nil {
		return ports.ProviderResponse{}, err
	}

	prompt, err := BuildPrompt(req.Prompt, req.Context, "")
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	resp, err := client.Models.GenerateContent(cctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		if ctx.Err() != nil {
			return ports.ProviderResponse{}, ctx.Err()
		}
		return ports.ProviderResponse{}, fmt.Errorf("%w: gemini-api: %v", domain.ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	command, err := ProcessResponse(text)
	if err != nil {
		return ports.ProviderResponse{}, err
	}
	return ports.ProviderResponse{Command: command, Raw: text}, nil
}

func (g *geminiAPIProvider) clientFor(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &domain.ProviderUnavailableError{Provider: domain.ProviderGeminiAPI, Hint: err.Error()}
	}
	g.client = client
	return client, nil
}

var _ ports.Provider = (*geminiAPIProvider)(nil)
