package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps mapping memory in a single JSON document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty memory.
func (s *FileStore) Load(ctx context.Context) (Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

// Put replaces the entry for pattern. An unreadable document is replaced.
func (s *FileStore) Put(ctx context.Context, pattern string, columns map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mem, err := s.read()
	if err != nil {
		mem = Memory{}
	}

	entry := make(map[string]string, len(columns))
	for column, key := range columns {
		entry[column] = key
	}
	mem[pattern] = entry

	return s.write(mem)
}

// Clear removes the document.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove mapping memory: %w", err)
	}
	return nil
}

func (s *FileStore) read() (Memory, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Memory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping memory: %w", err)
	}

	mem := Memory{}
	if len(data) == 0 {
		return mem, nil
	}
	if err := json.Unmarshal(data, &mem); err != nil {
		return nil, fmt.Errorf("failed to parse mapping memory: %w", err)
	}
	return mem, nil
}

func (s *FileStore) write(mem Memory) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	data, err := json.MarshalIndent(mem, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping memory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".mappings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write mapping memory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace mapping memory: %w", err)
	}
	return nil
}
