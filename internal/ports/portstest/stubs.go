// Package portstest provides in-memory port implementations for tests.
package portstest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Provider answers from a prompt→command table and counts calls.
type Provider struct {
	ProviderName string
	Commands     map[string]string
	// Fallback is returned for prompts missing from Commands; empty means GenerationFailed.
	Fallback string
	Err      error
	// Block, when set, is waited on before answering.
	Block <-chan struct{}
	// Seen receives the context of every call when non-nil.
	Seen func(ports.ProviderRequest)

	calls atomic.Int64
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) Available(context.Context) bool { return p.Err == nil }

func (p *Provider) Generate(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	p.calls.Add(1)
	if p.Seen != nil {
		p.Seen(req)
	}
	if p.Block != nil {
		select {
		case <-p.Block:
		case <-ctx.Done():
			return ports.ProviderResponse{}, ctx.Err()
		}
	}
	if p.Err != nil {
		return ports.ProviderResponse{}, p.Err
	}
	command, ok := p.Commands[req.Prompt]
	if !ok {
		command = p.Fallback
	}
	if command == "" {
		return ports.ProviderResponse{}, fmt.Errorf("%w: no answer for %q", domain.ErrGenerationFailed, req.Prompt)
	}
	return ports.ProviderResponse{Command: command, Raw: command}, nil
}

// Calls returns how many times Generate ran.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

// Gateway serves a fixed set of providers.
type Gateway struct {
	mu        sync.Mutex
	providers map[string]ports.Provider
	loaded    map[string]bool
}

// NewGateway registers providers under their lowercased names.
func NewGateway(providers ...ports.Provider) *Gateway {
	g := &Gateway{providers: map[string]ports.Provider{}, loaded: map[string]bool{}}
	for _, p := range providers {
		g.providers[strings.ToLower(p.Name())] = p
	}
	return g
}

func (g *Gateway) Provider(name string) (ports.Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name = strings.ToLower(name)
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	g.loaded[name] = true
	return p, nil
}

func (g *Gateway) Loaded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var names []string
	for name := range g.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Progress records stage events.
type Progress struct {
	mu     sync.Mutex
	Stages []domain.ProgressStage
	Dones  int
}

func (p *Progress) Stage(s domain.ProgressStage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stages = append(p.Stages, s)
}

func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Dones++
}

var (
	_ ports.Provider         = (*Provider)(nil)
	_ ports.ProviderGateway  = (*Gateway)(nil)
	_ ports.ProgressReporter = (*Progress)(nil)
)
