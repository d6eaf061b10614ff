package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/askai-go/internal/domain"
)

// RenderResponse prints the generated command and, when it ran, the outcome.
// Command output is streamed by the executor, so only the status is printed here.
func RenderResponse(out io.Writer, resp domain.QueryResponse, verbose bool) {
	result := resp.Result
	if result.Command == "" {
		return
	}
	fmt.Fprintf(out, "%s\n", result.Command)

	if verbose {
		source := "direct"
		if resp.ViaDaemon {
			source = "daemon"
		}
		cached := ""
		if result.CacheHit {
			cached = ", cached"
		}
		fmt.Fprintf(out, "  (%s via %s%s)\n", result.Provider, source, cached)
	}
	if result.Risk.Level != domain.RiskLow && result.Risk.Level != "" {
		fmt.Fprintf(out, "  risk: %s (%s)\n", result.Risk.Level, strings.Join(result.Risk.Reasons, "; "))
	}

	if exec := resp.ExecutionResult; exec != nil {
		switch {
		case exec.Err != nil && !exec.Ran:
			fmt.Fprintf(out, "failed to run: %v\n", exec.Err)
		case exec.ExitCode != 0:
			fmt.Fprintf(out, "exit status %d after %s\n", exec.ExitCode, roundDuration(exec.Duration))
		}
	}
}

// RenderError explains a failed query with remediation where known.
func RenderError(out io.Writer, err error) {
	fmt.Fprintf(out, "error: %v\n", err)
	if hint := remediation(err); hint != "" {
		fmt.Fprintf(out, "  %s\n", hint)
	}
}

func remediation(err error) string {
	switch {
	case errors.Is(err, domain.ErrBlocked):
		return "the command matched a deny rule and was not run"
	case errors.Is(err, domain.ErrUnknownProvider):
		return "known providers: " + strings.Join(domain.KnownProviders(), ", ")
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "run `askai doctor` to see which providers are usable"
	case errors.Is(err, domain.ErrGenerationFailed):
		return "try rephrasing the request or pick another provider with --provider"
	case errors.Is(err, context.DeadlineExceeded):
		return "raise --timeout or the provider timeout in the config file"
	}
	return ""
}

// RenderBatchPlan lists the command planned for every target.
func RenderBatchPlan(out io.Writer, targets []domain.BatchTarget) {
	fmt.Fprintf(out, "Found %s project(s):\n", humanize.Comma(int64(len(targets))))
	for _, target := range targets {
		label := fmt.Sprintf("%s [%s]", target.Project.Path, target.Project.PrimaryKind())
		switch {
		case target.Err != nil:
			fmt.Fprintf(out, "  %s: %v\n", label, target.Err)
		case target.CacheHit:
			fmt.Fprintf(out, "  %s: %s (cached)\n", label, target.Command)
		default:
			fmt.Fprintf(out, "  %s: %s\n", label, target.Command)
		}
	}
}

// RenderBatchResult prints one finished target.
func RenderBatchResult(out io.Writer, result domain.BatchResult) {
	switch {
	case result.Skipped:
		reason := "skipped"
		if result.Err != nil {
			reason = "skipped: " + result.Err.Error()
		}
		fmt.Fprintf(out, "- %s %s\n", result.Target.Path, reason)
	case result.Succeeded():
		fmt.Fprintf(out, "✓ %s (%s)\n", result.Target.Path, roundDuration(result.Duration))
	default:
		detail := fmt.Sprintf("exit %d", result.ExitStatus)
		if result.Err != nil {
			detail = result.Err.Error()
		}
		fmt.Fprintf(out, "✗ %s (%s)\n", result.Target.Path, detail)
	}
}

// RenderBatchSummary prints totals and the failed targets.
func RenderBatchSummary(out io.Writer, summary domain.BatchSummary) {
	fmt.Fprintf(out, "\n%d total, %d succeeded, %d failed, %d skipped in %s (%.0f%% success)\n",
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped,
		roundDuration(summary.Duration), summary.SuccessRate())
	failed := summary.FailedResults()
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(out, "Failed:")
	for _, r := range failed {
		fmt.Fprintf(out, "  %s: %s\n", r.Target.Path, r.Command)
		if tail := lastLine(r.Output); tail != "" {
			fmt.Fprintf(out, "    %s\n", tail)
		}
	}
}

// RenderDaemonStatus prints a status answer.
func RenderDaemonStatus(out io.Writer, status domain.DaemonStatus) {
	fmt.Fprintf(out, "Daemon %s (pid %d)\n", status.State, status.PID)
	fmt.Fprintf(out, "  socket:    %s\n", status.Socket)
	fmt.Fprintf(out, "  uptime:    %s\n", humanUptime(status.Uptime))
	fmt.Fprintf(out, "  providers: %s\n", strings.Join(status.LoadedProviders, ", "))
	fmt.Fprintf(out, "  cache:     %s entries\n", humanize.Comma(int64(status.CacheEntries)))
}

// RenderCacheStats prints cache statistics and the file size.
func RenderCacheStats(out io.Writer, stats domain.CacheStats, size int64) {
	fmt.Fprintf(out, "Cache %s (%s)\n", stats.Path, humanize.Bytes(uint64(max(size, 0))))
	fmt.Fprintf(out, "  entries: %s / %s (%d expired)\n",
		humanize.Comma(int64(stats.Entries)), humanize.Comma(int64(stats.MaxEntries)), stats.Expired)
	fmt.Fprintf(out, "  hits:    %s\n", humanize.Comma(int64(stats.TotalHits)))
	fmt.Fprintf(out, "  ttl:     %s\n", stats.TTL)
}

// RenderHistory prints records newest first.
func RenderHistory(out io.Writer, records []domain.HistoryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No history recorded yet.")
		return
	}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		status := " "
		if rec.Executed {
			status = "✓"
			if !rec.Success {
				status = "✗"
			}
		}
		fmt.Fprintf(out, "%s %-14s %-10s %s → %s\n",
			status, humanize.Time(rec.Timestamp), rec.Provider, rec.Prompt, rec.Command)
	}
}

// RenderDoctorReport prints each check.
func RenderDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
}

func humanUptime(d time.Duration) string {
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now.Add(-d), now, "", ""))
}

func roundDuration(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(10 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
