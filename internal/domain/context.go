package domain

// ContextSnapshot holds environment data injected into prompts.
type ContextSnapshot struct {
	WorkingDir     string
	Shell          string
	OS             string
	User           string
	AvailableTools []string
	Git            *GitStatus
	Project        *Project
	RelatedHistory []HistoryRecord
}

// GitStatus captures contextual Git data.
type GitStatus struct {
	Branch         string
	ModifiedCount  int
	UntrackedCount int
}
