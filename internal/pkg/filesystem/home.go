package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/doeshing/askai-go/internal/domain"
)

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// StatePath joins elem under ~/.askai.
func StatePath(elem ...string) string {
	return filepath.Join(append([]string{UserHomeDir(), domain.StateDirName}, elem...)...)
}

// ExpandPath resolves "~/" prefixes and cleans the result. Empty input returns fallback.
func ExpandPath(path, fallback string) string {
	if path == "" {
		return fallback
	}
	if path == "~" {
		return UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}
