package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/daemon"
	"github.com/doeshing/askai-go/internal/pkg/logger"
)

func TestPrompterConfirm(t *testing.T) {
	tests := []struct {
		name  string
		level domain.RiskLevel
		input string
		want  bool
	}{
		{"low accepts y", domain.RiskLow, "y\n", true},
		{"low accepts yes", domain.RiskLow, "YES\n", true},
		{"low default is no", domain.RiskLow, "\n", false},
		{"eof is no", domain.RiskMedium, "", false},
		{"high rejects y", domain.RiskHigh, "y\n", false},
		{"high needs yes", domain.RiskHigh, "yes\n", true},
		{"high without newline", domain.RiskHigh, "yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)
			require.True(t, p.Enabled())

			got, err := p.Confirm(domain.RiskAssessment{Level: tt.level, Reasons: []string{"reason"}}, "rm -rf build")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "rm -rf build")
		})
	}
}

func TestRenderHistoryNewestFirst(t *testing.T) {
	now := time.Now()
	records := []domain.HistoryRecord{
		{Timestamp: now.Add(-time.Hour), Prompt: "first", Command: "ls", Provider: "gemini"},
		{Timestamp: now, Prompt: "second", Command: "pwd", Provider: "claude", Executed: true, Success: true},
	}
	var out bytes.Buffer
	RenderHistory(&out, records)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "second")
	assert.True(t, strings.HasPrefix(lines[0], "✓"))
	assert.Contains(t, lines[1], "first")

	out.Reset()
	RenderHistory(&out, nil)
	assert.Equal(t, "No history recorded yet.\n", out.String())
}

func TestRenderErrorAddsRemediation(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&domain.BlockedError{Command: "rm -rf /"}, "deny rule"},
		{fmt.Errorf("%w: nope", domain.ErrUnknownProvider), "known providers: gemini"},
		{&domain.ProviderUnavailableError{Provider: "codex"}, "askai doctor"},
		{errors.New("boom"), ""},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		RenderError(&out, tt.err)
		assert.Contains(t, out.String(), "error: "+tt.err.Error())
		if tt.want == "" {
			assert.Equal(t, 1, strings.Count(out.String(), "\n"))
			continue
		}
		assert.Contains(t, out.String(), tt.want)
	}
}

func TestRenderBatchSummaryListsFailures(t *testing.T) {
	summary := domain.Summarize([]domain.BatchResult{
		{Target: domain.Project{Path: "/src/a"}, Command: "make", ExitStatus: 0},
		{Target: domain.Project{Path: "/src/b"}, Command: "make", ExitStatus: 2, Output: "building\nmake: *** no rule\n"},
		{Target: domain.Project{Path: "/src/c"}, Skipped: true},
	}, time.Second)

	var out bytes.Buffer
	RenderBatchSummary(&out, summary)
	text := out.String()
	assert.Contains(t, text, "3 total, 1 succeeded, 1 failed, 1 skipped")
	assert.Contains(t, text, "/src/b: make")
	assert.Contains(t, text, "make: *** no rule")
	assert.NotContains(t, text, "/src/a:")
}

func TestStopDaemonWhenNotRunningExitsNonZero(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	client := daemon.NewClient(socket, time.Second, time.Second, logger.NewNop())

	var out bytes.Buffer
	err := stopDaemon(context.Background(), &out, client, time.Second)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "Daemon is not running.\n", out.String())
}
