package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/askai-go/assets"
	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/filesystem"
	"github.com/doeshing/askai-go/internal/ports"
)

// FileLoader loads YAML configuration from ~/.askai/config.yaml (overridable via ASKAI_CONFIG).
type FileLoader struct {
	overridePath string
	// envFiles are loaded before the config; variables already set win.
	envFiles []string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{
		overridePath: path,
		envFiles:     []string{filesystem.StatePath(".env"), ".env"},
	}
}

// Load implements ports.ConfigProvider. A missing config file is created from
// the embedded defaults; keys absent from an existing file keep their defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	if err := l.loadEnv(); err != nil {
		return domain.Config{}, err
	}

	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := writeDefaults(path); err != nil {
			return domain.Config{}, err
		}
		data = assets.DefaultConfigYAML
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Parse overlays data on the embedded defaults and expands paths.
func Parse(data []byte) (domain.Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return domain.Config{}, err
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, err
		}
	}
	return hydrateDefaults(cfg), nil
}

// DefaultConfig returns the embedded configuration with paths expanded.
func DefaultConfig() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("embedded defaults: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath, "")
	}
	if custom := os.Getenv("ASKAI_CONFIG"); custom != "" {
		return filesystem.ExpandPath(custom, "")
	}
	return filesystem.StatePath("config.yaml")
}

func (l *FileLoader) loadEnv() error {
	for _, file := range l.envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

// writeDefaults writes the default config and, when absent, the starter rules file.
func writeDefaults(path string) error {
	if err := filesystem.WriteFileAtomic(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	rules := filepath.Join(filepath.Dir(path), "guardrail.yaml")
	if _, err := os.Stat(rules); errors.Is(err, fs.ErrNotExist) {
		if err := filesystem.WriteFileAtomic(rules, assets.DefaultGuardrailYAML, domain.SecureFilePermissions); err != nil {
			return fmt.Errorf("write default rules: %w", err)
		}
	}
	return nil
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	cfg.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.DefaultProvider))
	cfg.History.Backend = strings.ToLower(cfg.History.Backend)

	cfg.History.Path = filesystem.ExpandPath(cfg.History.Path, "")
	cfg.Cache.Path = filesystem.ExpandPath(cfg.Cache.Path, "")
	cfg.Daemon.Socket = filesystem.ExpandPath(cfg.Daemon.Socket, "")
	cfg.Daemon.PIDFile = filesystem.ExpandPath(cfg.Daemon.PIDFile, "")
	cfg.Daemon.LogFile = filesystem.ExpandPath(cfg.Daemon.LogFile, "")
	cfg.Security.RulesFile = filesystem.ExpandPath(cfg.Security.RulesFile, "")

	if len(cfg.Providers) > 0 {
		normalized := make(map[string]domain.ProviderSettings, len(cfg.Providers))
		for name, settings := range cfg.Providers {
			normalized[strings.ToLower(name)] = settings
		}
		cfg.Providers = normalized
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
