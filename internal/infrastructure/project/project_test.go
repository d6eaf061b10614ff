package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/askai-go/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectorKindsAndMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/feature/x\n")
	writeFile(t, filepath.Join(dir, "Cargo.toml"), "[package]\nname = \"tool\"\nversion = \"0.3.1\"\n\n[dependencies]\nname = \"ignored\"\n")
	writeFile(t, filepath.Join(dir, "package.json"), `{"name": "web", "version": "1.2.0"}`)

	project := NewDetector().Detect(dir)

	assert.Equal(t, []domain.ProjectKind{domain.ProjectGit, domain.ProjectRust, domain.ProjectNodeJS}, project.Kinds)
	assert.Equal(t, domain.ProjectRust, project.PrimaryKind())
	assert.Equal(t, "feature/x", project.GitBranch)
	// package.json is read after Cargo.toml.
	assert.Equal(t, "web", project.Metadata["package_name"])
	assert.Equal(t, "1.2.0", project.Metadata["version"])
	assert.Equal(t, filepath.Base(dir), project.Name)
}

func TestDetectorUnknownAndGitOnly(t *testing.T) {
	empty := t.TempDir()
	project := NewDetector().Detect(empty)
	assert.Equal(t, []domain.ProjectKind{domain.ProjectUnknown}, project.Kinds)
	assert.Equal(t, domain.ProjectUnknown, project.PrimaryKind())

	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, ".git", "HEAD"), "0123456789abcdef\n")
	project = NewDetector().Detect(repo)
	assert.True(t, project.IsGit())
	assert.Empty(t, project.GitBranch)
	assert.Equal(t, domain.ProjectUnknown, project.PrimaryKind())
}

func TestDetectorGoAndPython(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/svc\n\ngo 1.22\n")
	writeFile(t, filepath.Join(dir, "pyproject.toml"), "[project]\n")

	project := NewDetector().Detect(dir)
	assert.Equal(t, []domain.ProjectKind{domain.ProjectPython, domain.ProjectGo}, project.Kinds)
	assert.Equal(t, "example.com/svc", project.Metadata["module"])
}

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "api", "go.mod"), "module api\n")
	writeFile(t, filepath.Join(root, "web", "package.json"), `{"name":"web"}`)
	writeFile(t, filepath.Join(root, "web", "node_modules", "dep", "package.json"), `{"name":"dep"}`)
	writeFile(t, filepath.Join(root, "libs", "core", "Cargo.toml"), "[package]\nname = \"core\"\n")
	writeFile(t, filepath.Join(root, "deep", "a", "b", "c", "go.mod"), "module deep\n")
	writeFile(t, filepath.Join(root, "docs", "README.md"), "docs")
	return root
}

func TestScannerFindsProjectsWithinDepth(t *testing.T) {
	root := buildTree(t)
	scanner, err := NewScanner(nil, nil, nil)
	require.NoError(t, err)

	projects, err := scanner.Scan(context.Background(), root, 3)
	require.NoError(t, err)

	var names []string
	for _, p := range projects {
		names = append(names, p.Name)
	}
	// deep/a/b/c is depth 4; node_modules is excluded; docs has no markers.
	assert.Equal(t, []string{"api", "core", "web"}, names)
}

func TestScannerDepthZeroIsRootOnly(t *testing.T) {
	root := buildTree(t)
	writeFile(t, filepath.Join(root, "go.mod"), "module root\n")
	scanner, err := NewScanner(nil, nil, nil)
	require.NoError(t, err)

	projects, err := scanner.Scan(context.Background(), root, 0)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, root, projects[0].Path)
}

func TestScannerCustomExcludes(t *testing.T) {
	root := buildTree(t)
	scanner, err := NewScanner(nil, []string{"libs/**", "libs"}, nil)
	require.NoError(t, err)

	projects, err := scanner.Scan(context.Background(), root, 3)
	require.NoError(t, err)
	for _, p := range projects {
		assert.NotEqual(t, "core", p.Name)
	}
	// node_modules is no longer excluded.
	assert.Len(t, projects, 3)
}

func TestScannerRejectsBadPattern(t *testing.T) {
	_, err := NewScanner(nil, []string{"[unterminated"}, nil)
	require.Error(t, err)
}

func TestScannerHonorsCancellation(t *testing.T) {
	root := buildTree(t)
	scanner, err := NewScanner(nil, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = scanner.Scan(ctx, root, 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScannerMissingRoot(t *testing.T) {
	scanner, err := NewScanner(nil, nil, nil)
	require.NoError(t, err)
	_, err = scanner.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), 3)
	require.Error(t, err)
}
