package contextcollector

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/project"
	"github.com/doeshing/askai-go/internal/ports"
)

// BasicCollector implements ContextCollector with project detection, git status
// and tool discovery.
type BasicCollector struct {
	detector     ports.ProjectDetector
	toolsToCheck []string

	toolsOnce sync.Once
	tools     []string
}

func NewBasicCollector(detector ports.ProjectDetector) *BasicCollector {
	if detector == nil {
		detector = project.NewDetector()
	}
	return &BasicCollector{
		detector:     detector,
		toolsToCheck: []string{"docker", "kubectl", "git", "npm", "yarn", "pnpm", "python3", "go", "node", "cargo", "make", "mvn", "gradle"},
	}
}

// Collect gathers context for dir; an empty dir means the process working directory.
// Missing pieces are left empty rather than reported as errors.
func (c *BasicCollector) Collect(ctx context.Context, cfg domain.Config, dir string) (domain.ContextSnapshot, error) {
	if dir == "" {
		dir, _ = os.Getwd()
	}

	snapshot := domain.ContextSnapshot{
		WorkingDir:     dir,
		Shell:          detectShell(cfg),
		OS:             runtime.GOOS,
		User:           os.Getenv("USER"),
		AvailableTools: c.detectTools(),
	}

	if dir != "" {
		detected := c.detector.Detect(dir)
		if detected.PrimaryKind() != domain.ProjectUnknown || detected.IsGit() {
			snapshot.Project = &detected
		}
		if detected.IsGit() {
			snapshot.Git = collectGitInfo(ctx, dir, detected.GitBranch)
		}
	}
	return snapshot, nil
}

// detectTools probes PATH once per collector.
func (c *BasicCollector) detectTools() []string {
	c.toolsOnce.Do(func() {
		for _, tool := range c.toolsToCheck {
			if _, err := exec.LookPath(tool); err == nil {
				c.tools = append(c.tools, tool)
			}
		}
		sort.Strings(c.tools)
	})
	return c.tools
}

func detectShell(cfg domain.Config) string {
	if shell := cfg.GetExecutionShell(); shell != "" && shell != "sh" {
		return filepath.Base(shell)
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	return "sh"
}

func collectGitInfo(ctx context.Context, dir, branch string) *domain.GitStatus {
	if branch == "" {
		branch = strings.TrimSpace(runCmd(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD"))
	}
	status := &domain.GitStatus{Branch: branch}
	for _, line := range strings.Split(runCmd(ctx, dir, "git", "status", "--short"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "??") {
			status.UntrackedCount++
		} else {
			status.ModifiedCount++
		}
	}
	return status
}

func runCmd(ctx context.Context, dir string, name string, args ...string) string {
	cctx, cancel := context.WithTimeout(ctx, domain.DefaultCommandTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

var _ ports.ContextCollector = (*BasicCollector)(nil)
