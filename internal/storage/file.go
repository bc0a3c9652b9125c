package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// FileStore keeps every key in a single JSON object on disk. Writes go to a
// temp file that is renamed over the original.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create data dir: %w", err)}
	}
	return &FileStore{
		path:   path,
		logger: logger.With("component", "file_store"),
	}, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := data[key]
	return []byte(v), ok, nil
}

func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return &types.StorageError{Backend: "file", Err: errors.New("value is not valid JSON")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = json.RawMessage(value)
	return s.write(data)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.write(data)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	data := make(map[string]json.RawMessage)
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: err}
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("decode %s: %w", s.path, err)}
	}
	return data, nil
}

func (s *FileStore) write(data map[string]json.RawMessage) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".batch-*.json")
	if err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return &types.StorageError{Backend: "file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}

	s.logger.Debug("store written", "path", s.path, "keys", len(data), "bytes", len(raw))
	return nil
}
