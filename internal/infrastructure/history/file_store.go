package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/filesystem"
	"github.com/doeshing/askai-go/internal/pkg/logger"
	"github.com/doeshing/askai-go/internal/ports"
)

// FileStore keeps the most recent records as a JSON array, oldest first.
// The file is rewritten atomically on every append.
type FileStore struct {
	path       string
	maxEntries int
	logger     ports.Logger

	mu      sync.RWMutex
	loaded  bool
	records []domain.HistoryRecord
}

// NewFileStore creates a store at path (default ~/.askai/history.json).
func NewFileStore(path string, maxEntries int, log ports.Logger) *FileStore {
	if maxEntries <= 0 {
		maxEntries = domain.DefaultHistoryMaxEntries
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FileStore{
		path:       filesystem.ExpandPath(path, filesystem.StatePath("history.json")),
		maxEntries: maxEntries,
		logger:     log,
	}
}

// Append adds record, evicting the oldest beyond capacity, then persists.
// On a failed persist the record stays in memory and the error wraps domain.ErrHistoryIO.
func (f *FileStore) Append(record domain.HistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadLocked()

	f.records = append(f.records, record)
	if over := len(f.records) - f.maxEntries; over > 0 {
		f.records = append([]domain.HistoryRecord(nil), f.records[over:]...)
	}
	return f.persistLocked()
}

// Records returns a copy, oldest first. limit > 0 keeps only the newest limit.
func (f *FileStore) Records(limit int) ([]domain.HistoryRecord, error) {
	f.mu.RLock()
	if f.loaded {
		defer f.mu.RUnlock()
		return tail(f.records, limit), nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadLocked()
	return tail(f.records, limit), nil
}

// MarkExecuted implements ports.HistoryStore.
func (f *FileStore) MarkExecuted(prompt, command string, exitCode int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadLocked()

	for i := len(f.records) - 1; i >= 0; i-- {
		rec := &f.records[i]
		if rec.Executed || rec.Prompt != prompt || rec.Command != command {
			continue
		}
		rec.Executed = true
		rec.Success = exitCode == 0
		rec.ExitCode = exitCode
		return f.persistLocked()
	}
	return nil
}

// Clear removes every record and the backing file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	f.loaded = true
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrHistoryIO, err)
	}
	return nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) loadLocked() {
	if f.loaded {
		return
	}
	f.loaded = true
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("history unreadable, starting empty", map[string]interface{}{"path": f.path, "error": err.Error()})
		}
		return
	}
	if len(data) == 0 {
		return
	}
	var records []domain.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		f.logger.Warn("history corrupt, starting empty", map[string]interface{}{"path": f.path, "error": err.Error()})
		return
	}
	if over := len(records) - f.maxEntries; over > 0 {
		records = records[over:]
	}
	f.records = records
}

func (f *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(f.records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrHistoryIO, err)
	}
	if err := filesystem.WriteFileAtomic(f.path, data, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryIO, err)
	}
	return nil
}

func tail(records []domain.HistoryRecord, limit int) []domain.HistoryRecord {
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]domain.HistoryRecord, len(records))
	copy(out, records)
	return out
}

var _ ports.HistoryStore = (*FileStore)(nil)
