package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "llama3.2"
	ollamaProbeTimeout    = 2 * time.Second
)

type ollamaProvider struct {
	client   *api.Client
	endpoint string
	model    string

	probe     sync.Once
	available bool
}

func newOllamaProvider(settings domain.ProviderSettings) (ports.Provider, error) {
	endpoint := valueOrDefault(settings.Endpoint, valueOrDefault(resolveAuth("OLLAMA_HOST"), defaultOllamaEndpoint))
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse ollama endpoint %q: %w", endpoint, err)
	}
	return &ollamaProvider{
		client:   api.NewClient(base, &http.Client{Timeout: providerTimeout(settings)}),
		endpoint: endpoint,
		model:    valueOrDefault(settings.Model, defaultOllamaModel),
	}, nil
}

func (o *ollamaProvider) Name() string {
	return domain.ProviderOllama
}

// Available sends one heartbeat to the server.
func (o *ollamaProvider) Available(ctx context.Context) bool {
	o.probe.Do(func() {
		pctx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
		defer cancel()
		o.available = o.client.Heartbeat(pctx) == nil
	})
	return o.available
}

// Hint explains how to make the provider available.
func (o *ollamaProvider) Hint() string {
	return fmt.Sprintf("start `ollama serve` or point providers.ollama.endpoint at a running server (tried %s)", o.endpoint)
}

func (o *ollamaProvider) Generate(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	if !o.Available(ctx) {
		return ports.ProviderResponse{}, &domain.ProviderUnavailableError{Provider: domain.ProviderOllama, Hint: o.Hint()}
	}

	prompt, err := BuildPrompt(req.Prompt, req.Context, "")
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	stream := false
	var raw strings.Builder
	err = o.client.Generate(ctx, &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		raw.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ports.ProviderResponse{}, ctx.Err()
		}
		return ports.ProviderResponse{}, fmt.Errorf("%w: ollama: %v", domain.ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(raw.String())
	command, err := ProcessResponse(text)
	if err != nil {
		return ports.ProviderResponse{}, err
	}
	return ports.ProviderResponse{Command: command, Raw: text}, nil
}

var _ ports.Provider = (*ollamaProvider)(nil)
