package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/askai-go/internal/domain"
)

const generationTemplate = `You are a bash command generator. Convert natural language to a single bash command.

RULES:
- Output ONLY the bash command (no explanations, no markdown)
- Do NOT say "I cannot" or similar - just output the command
- Be precise and accurate
{{- if .Rules}}
{{.Rules}}
{{- end}}

Context: {{.Context}}
Request: {{.Prompt}}

Examples:
"파일 목록" → ls -la
"git 상태" → git status
"txt 파일 찾기" → find . -name "*.txt"
"현재 시간" → date

Command:`

var promptTemplate = template.Must(template.New("generate").Parse(generationTemplate))

type templateData struct {
	Prompt  string
	Context string
	Rules   string
}

// BuildPrompt renders the shared generation prompt. rules adds provider-specific
// lines to the RULES block.
func BuildPrompt(prompt string, snapshot domain.ContextSnapshot, rules string) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, templateData{
		Prompt:  strings.TrimSpace(prompt),
		Context: ContextString(snapshot),
		Rules:   strings.TrimSpace(rules),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ContextString renders the environment block injected into prompts.
func ContextString(ctx domain.ContextSnapshot) string {
	var lines []string
	if ctx.WorkingDir != "" {
		lines = append(lines, fmt.Sprintf("Current directory: %s", ctx.WorkingDir))
	}
	if ctx.Shell != "" {
		lines = append(lines, fmt.Sprintf("Shell: %s", ctx.Shell))
	}
	if ctx.OS != "" {
		lines = append(lines, fmt.Sprintf("OS: %s", ctx.OS))
	}
	if tools := strings.Join(ctx.AvailableTools, ", "); tools != "" {
		lines = append(lines, fmt.Sprintf("Available tools: %s", tools))
	}
	if summary := projectSummary(ctx.Project); summary != "" {
		lines = append(lines, summary)
	}
	if summary := gitSummary(ctx.Git); summary != "" {
		lines = append(lines, fmt.Sprintf("Git: %s", summary))
	}

	out := strings.Join(lines, "\n")
	if history := HistoryContext(ctx.RelatedHistory); history != "" {
		out += "\n\n" + history
	}
	return out
}

// HistoryContext renders retrieved records as numbered prompt/command pairs.
func HistoryContext(records []domain.HistoryRecord) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant past commands:\n")
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. Prompt: %q → Command: %q\n", i+1, rec.Prompt, rec.Command)
	}
	return strings.TrimRight(b.String(), "\n")
}

func projectSummary(p *domain.Project) string {
	if p == nil {
		return ""
	}
	summary := fmt.Sprintf("Project: %s (%s)", p.Name, p.PrimaryKind())
	if version := p.Metadata["version"]; version != "" {
		summary += " v" + version
	}
	return summary
}

func gitSummary(status *domain.GitStatus) string {
	if status == nil {
		return ""
	}
	return fmt.Sprintf("branch %s, modified %d, untracked %d", status.Branch, status.ModifiedCount, status.UntrackedCount)
}
