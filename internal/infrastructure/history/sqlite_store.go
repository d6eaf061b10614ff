package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/filesystem"
	"github.com/doeshing/askai-go/internal/ports"
)

// SQLiteStore persists history in a SQLite database, trimmed to maxEntries rows
// inside the same transaction as each insert.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	maxEntries int
	mu         sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path (default ~/.askai/history.db).
func NewSQLiteStore(path string, maxEntries int) (*SQLiteStore, error) {
	path = filesystem.ExpandPath(path, filesystem.StatePath("history.db"))
	if maxEntries <= 0 {
		maxEntries = domain.DefaultHistoryMaxEntries
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHistoryIO, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", domain.ErrHistoryIO, err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db, path: path, maxEntries: maxEntries}
	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init: %v", domain.ErrHistoryIO, err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		prompt TEXT,
		command TEXT,
		provider TEXT,
		executed INTEGER,
		success INTEGER,
		exit_code INTEGER,
		risk_level TEXT
	);`)
	return err
}

// Append inserts a record and drops rows beyond capacity, oldest first.
func (s *SQLiteStore) Append(record domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO commands
		(timestamp, prompt, command, provider, executed, success, exit_code, risk_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.Format(time.RFC3339Nano),
		record.Prompt,
		record.Command,
		record.Provider,
		boolToInt(record.Executed),
		boolToInt(record.Success),
		record.ExitCode,
		string(record.RiskLevel),
	); err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrHistoryIO, err)
	}
	if _, err := tx.Exec(`DELETE FROM commands WHERE id NOT IN
		(SELECT id FROM commands ORDER BY id DESC LIMIT ?)`, s.maxEntries); err != nil {
		return fmt.Errorf("%w: trim: %v", domain.ErrHistoryIO, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrHistoryIO, err)
	}
	return nil
}

// Records returns history entries oldest first; limit > 0 keeps the newest limit.
func (s *SQLiteStore) Records(limit int) ([]domain.HistoryRecord, error) {
	query := `SELECT timestamp, prompt, command, provider, executed, success, exit_code, risk_level
		FROM (SELECT * FROM commands ORDER BY id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	query += ") ORDER BY id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrHistoryIO, err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var ts, risk string
		var executed, success int
		if err := rows.Scan(&ts, &rec.Prompt, &rec.Command, &rec.Provider, &executed, &success, &rec.ExitCode, &risk); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrHistoryIO, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
		rec.Executed = executed == 1
		rec.Success = success == 1
		rec.RiskLevel = domain.RiskLevel(risk)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkExecuted implements ports.HistoryStore.
func (s *SQLiteStore) MarkExecuted(prompt, command string, exitCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE commands SET executed = 1, success = ?, exit_code = ?
		WHERE id = (SELECT MAX(id) FROM commands WHERE executed = 0 AND prompt = ? AND command = ?)`,
		boolToInt(exitCode == 0), exitCode, prompt, command)
	if err != nil {
		return fmt.Errorf("%w: update: %v", domain.ErrHistoryIO, err)
	}
	return nil
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM commands"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryIO, err)
	}
	return nil
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryStore = (*SQLiteStore)(nil)
