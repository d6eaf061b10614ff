package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

type cliSpec struct {
	name   string
	binary string
	// args precede the prompt argument.
	args  []string
	hint  string
	rules string
}

// cliProvider runs a vendor CLI with the rendered prompt as its final argument.
type cliProvider struct {
	spec    cliSpec
	timeout time.Duration

	probe sync.Once
	path  string
}

func newCLIProvider(spec cliSpec, settings domain.ProviderSettings) *cliProvider {
	return &cliProvider{spec: spec, timeout: providerTimeout(settings)}
}

func (p *cliProvider) Name() string {
	return p.spec.name
}

// Available looks the binary up on PATH once.
func (p *cliProvider) Available(context.Context) bool {
	p.probe.Do(func() {
		if path, err := exec.LookPath(p.spec.binary); err == nil {
			p.path = path
		}
	})
	return p.path != ""
}

// Hint is the install instruction for the binary.
func (p *cliProvider) Hint() string {
	return p.spec.hint
}

func (p *cliProvider) Generate(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	if !p.Available(ctx) {
		return ports.ProviderResponse{}, &domain.ProviderUnavailableError{Provider: p.spec.name, Hint: p.spec.hint}
	}

	prompt, err := BuildPrompt(req.Prompt, req.Context, p.spec.rules)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string{}, p.spec.args...), prompt)
	cmd := exec.CommandContext(cctx, p.path, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ports.ProviderResponse{}, ctx.Err()
		}
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return ports.ProviderResponse{}, fmt.Errorf("%w: %s timed out after %s", domain.ErrGenerationFailed, p.spec.name, p.timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return ports.ProviderResponse{}, fmt.Errorf("%w: %s: %s", domain.ErrGenerationFailed, p.spec.name, detail)
	}

	raw := strings.TrimSpace(stdout.String())
	command, err := ProcessResponse(raw)
	if err != nil {
		return ports.ProviderResponse{}, err
	}
	return ports.ProviderResponse{Command: command, Raw: raw}, nil
}

var _ ports.Provider = (*cliProvider)(nil)
