package paramstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps parameters in a local JSON file. It backs the local memory
// mode so the full resolution flow runs without AWS credentials.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := params[name]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *FileStore) Put(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.load()
	if err != nil {
		return err
	}
	params[name] = value

	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	params := map[string]string{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parse parameter file %s: %w", s.path, err)
	}
	return params, nil
}
