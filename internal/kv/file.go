package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"GreenDeck/internal/logger"
)

// FileStore keeps the whole map in one JSON file and rewrites it on every
// change.
type FileStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]string
	log      *logger.Logger
}

// NewFileStore opens filePath, creating its directory if needed. A missing
// file starts empty; an unparsable file is logged and also starts empty.
func NewFileStore(filePath string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &FileStore{
		filePath: filePath,
		data:     make(map[string]string),
		log:      log.With("component", "FileStore"),
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn("store file unreadable, starting empty", "path", filePath, "error", err)
		return s, nil
	}
	if data != nil {
		s.data = data
	}
	s.log.Debug("store loaded", "path", filePath, "keys", len(s.data))
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.save()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

func (s *FileStore) Close() error { return nil }

// save writes to a temp file, syncs it and renames it over the store file.
// Must be called with the lock held.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tempPath := s.filePath + ".tmp"
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
