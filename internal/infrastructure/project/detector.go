package project

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Detector classifies directories by their marker files.
type Detector struct{}

// NewDetector returns a marker-file detector.
func NewDetector() *Detector {
	return &Detector{}
}

// marker lists files whose presence implies a kind. Order is the kind order in a Project.
var markers = []struct {
	kind  domain.ProjectKind
	files []string
}{
	{domain.ProjectRust, []string{"Cargo.toml"}},
	{domain.ProjectNodeJS, []string{"package.json"}},
	{domain.ProjectPython, []string{"requirements.txt", "pyproject.toml", "setup.py"}},
	{domain.ProjectGo, []string{"go.mod"}},
	{domain.ProjectJava, []string{"pom.xml", "build.gradle"}},
}

// Detect implements ports.ProjectDetector. It never fails; unreadable metadata is ignored.
func (d *Detector) Detect(dir string) domain.Project {
	project := domain.Project{
		Path:     dir,
		Name:     filepath.Base(dir),
		Metadata: map[string]string{},
	}

	if exists(filepath.Join(dir, ".git")) {
		project.Kinds = append(project.Kinds, domain.ProjectGit)
		project.GitBranch = readGitBranch(dir)
	}

	for _, m := range markers {
		for _, file := range m.files {
			if exists(filepath.Join(dir, file)) {
				project.Kinds = append(project.Kinds, m.kind)
				break
			}
		}
	}

	if project.Is(domain.ProjectRust) {
		readCargoMetadata(filepath.Join(dir, "Cargo.toml"), project.Metadata)
	}
	if project.Is(domain.ProjectNodeJS) {
		readPackageJSON(filepath.Join(dir, "package.json"), project.Metadata)
	}
	if project.Is(domain.ProjectGo) {
		readGoModule(filepath.Join(dir, "go.mod"), project.Metadata)
	}

	if len(project.Kinds) == 0 {
		project.Kinds = []domain.ProjectKind{domain.ProjectUnknown}
	}
	return project
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readGitBranch returns the branch HEAD points at, or "" when detached.
func readGitBranch(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(data))
	if branch, ok := strings.CutPrefix(head, "ref: refs/heads/"); ok {
		return branch
	}
	return ""
}

// readCargoMetadata reads name and version from the [package] table.
func readCargoMetadata(path string, meta map[string]string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	section := ""
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			section = strings.Trim(line, "[] ")
			continue
		}
		if section != "package" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch strings.TrimSpace(key) {
		case "name":
			meta["package_name"] = value
		case "version":
			meta["version"] = value
		}
	}
}

func readPackageJSON(path string, meta map[string]string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}
	if pkg.Name != "" {
		meta["package_name"] = pkg.Name
	}
	if pkg.Version != "" {
		meta["version"] = pkg.Version
	}
}

func readGoModule(path string, meta map[string]string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if module, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "module "); ok {
			meta["module"] = strings.Trim(strings.TrimSpace(module), `"`)
			return
		}
	}
}

var _ ports.ProjectDetector = (*Detector)(nil)
