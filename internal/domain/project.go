package domain

import "strings"

// ProjectKind is an ecosystem recognized from marker files.
type ProjectKind string

const (
	ProjectUnknown ProjectKind = "unknown"
	ProjectGit     ProjectKind = "git"
	ProjectRust    ProjectKind = "rust"
	ProjectNodeJS  ProjectKind = "nodejs"
	ProjectPython  ProjectKind = "python"
	ProjectGo      ProjectKind = "go"
	ProjectJava    ProjectKind = "java"
)

// ParseProjectKind maps user input to a kind; "node" and "golang" are accepted aliases.
func ParseProjectKind(value string) (ProjectKind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "git":
		return ProjectGit, true
	case "rust":
		return ProjectRust, true
	case "nodejs", "node":
		return ProjectNodeJS, true
	case "python":
		return ProjectPython, true
	case "go", "golang":
		return ProjectGo, true
	case "java":
		return ProjectJava, true
	default:
		return ProjectUnknown, false
	}
}

// Project is a directory discovered for batch mode. Not persisted.
type Project struct {
	Path      string
	Name      string
	Kinds     []ProjectKind
	GitBranch string
	Metadata  map[string]string
}

// PrimaryKind returns the first ecosystem kind, ignoring git.
func (p Project) PrimaryKind() ProjectKind {
	for _, kind := range p.Kinds {
		if kind != ProjectGit && kind != ProjectUnknown {
			return kind
		}
	}
	return ProjectUnknown
}

// Is reports whether the project carries kind.
func (p Project) Is(kind ProjectKind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsGit reports whether the project is a git checkout.
func (p Project) IsGit() bool {
	return p.Is(ProjectGit)
}

// FilterByKind keeps projects carrying kind. ProjectUnknown or "" keeps everything.
func FilterByKind(projects []Project, kind ProjectKind) []Project {
	if kind == ProjectUnknown || kind == "" {
		return projects
	}
	var out []Project
	for _, p := range projects {
		if p.Is(kind) {
			out = append(out, p)
		}
	}
	return out
}
