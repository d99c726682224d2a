package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

// FileStore keeps the record in a local JSON file, written atomically via a
// temp file and rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore prepares a file-backed store at the given path.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	log.Printf("💾 [STATE] File store at %s", path)
	return &FileStore{path: path}, nil
}

// Load reads and decodes the record, or returns nil when the file does not
// exist yet.
func (s *FileStore) Load(ctx context.Context) (*models.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var rec models.DailyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	rec.EnsureMaps()
	return &rec, nil
}

// Save writes the record to a temp file and renames it into place so readers
// never observe a partial document.
func (s *FileStore) Save(ctx context.Context, rec *models.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Ping verifies the state directory is still writable.
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("state directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("state path parent is not a directory")
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }
