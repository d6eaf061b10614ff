package project

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/logger"
	"github.com/doeshing/askai-go/internal/ports"
)

// DefaultExcludes are directory globs never descended into.
var DefaultExcludes = []string{
	"**/node_modules",
	"**/.git",
	"**/target",
	"**/vendor",
	"**/.venv",
	"**/__pycache__",
}

// Scanner walks a directory tree looking for projects.
type Scanner struct {
	detector ports.ProjectDetector
	excludes []string
	logger   ports.Logger
}

// NewScanner builds a scanner. Exclude globs are matched against slash-separated
// paths relative to the scan root; nil means DefaultExcludes.
func NewScanner(detector ports.ProjectDetector, excludes []string, log ports.Logger) (*Scanner, error) {
	if detector == nil {
		detector = NewDetector()
	}
	if excludes == nil {
		excludes = DefaultExcludes
	}
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scanner{detector: detector, excludes: excludes, logger: log}, nil
}

// Scan implements ports.ProjectScanner. The root itself is depth 0. Symlinks are
// not followed and unreadable subdirectories are skipped. Only directories with a
// primary kind are returned, sorted by path.
func (s *Scanner) Scan(ctx context.Context, root string, maxDepth int) ([]domain.Project, error) {
	if maxDepth < 0 {
		maxDepth = domain.DefaultScanDepth
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	var projects []domain.Project
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			s.logger.Debug("skipping unreadable directory", map[string]interface{}{"path": path, "error": walkErr.Error()})
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		depth := 0
		if rel != "." {
			rel = filepath.ToSlash(rel)
			depth = strings.Count(rel, "/") + 1
			if s.excluded(rel) {
				return fs.SkipDir
			}
		}

		project := s.detector.Detect(path)
		if project.PrimaryKind() != domain.ProjectUnknown {
			projects = append(projects, project)
		}
		if depth >= maxDepth {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Path < projects[j].Path })
	return projects, nil
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

var _ ports.ProjectScanner = (*Scanner)(nil)
