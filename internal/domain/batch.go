package domain

import "time"

// BatchRequest describes one batch run.
type BatchRequest struct {
	Root        string
	Prompt      string
	Provider    string
	MaxParallel int
	MaxDepth    int
	Kind        ProjectKind
	UseCache    bool
	DryRun      bool
	AutoApprove bool
}

// BatchTarget is a project paired with its generated command (or the generation error).
type BatchTarget struct {
	Project  Project
	Command  string
	Risk     RiskAssessment
	CacheHit bool
	Err      error
}

// BatchResult is the per-project outcome of a batch run.
type BatchResult struct {
	Target     Project
	Command    string
	ExitStatus int
	Duration   time.Duration
	CacheHit   bool
	Skipped    bool
	Output     string
	Err        error
}

// Succeeded reports a zero exit status and no error.
func (r BatchResult) Succeeded() bool {
	return r.Err == nil && !r.Skipped && r.ExitStatus == 0
}

// BatchSummary aggregates batch results. Never persisted.
type BatchSummary struct {
	Results   []BatchResult
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// SuccessRate returns succeeded/total as a percentage.
func (s BatchSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// FailedResults returns results that did not succeed and were not skipped.
func (s BatchSummary) FailedResults() []BatchResult {
	var failed []BatchResult
	for _, r := range s.Results {
		if !r.Skipped && !r.Succeeded() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summarize builds a summary from per-project results.
func Summarize(results []BatchResult, elapsed time.Duration) BatchSummary {
	summary := BatchSummary{Results: results, Total: len(results), Duration: elapsed}
	for _, r := range results {
		switch {
		case r.Skipped:
			summary.Skipped++
		case r.Succeeded():
			summary.Succeeded++
		default:
			summary.Failed++
		}
	}
	return summary
}
