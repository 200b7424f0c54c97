package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore keeps one JSON document per thread in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create threads directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes t, replacing any previous version.
func (s *FileStore) Save(_ context.Context, t Thread) error {
	if !validID(t.ID) {
		return fmt.Errorf("invalid thread id %q", t.ID)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode thread: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, t.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save thread: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save thread: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(t.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save thread: %w", err)
	}
	return nil
}

// Load reads the thread with the given id.
func (s *FileStore) Load(_ context.Context, id string) (Thread, error) {
	if !validID(id) {
		return Thread{}, ErrNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return Thread{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Thread{}, fmt.Errorf("failed to read thread: %w", err)
	}
	var t Thread
	if err := json.Unmarshal(data, &t); err != nil {
		return Thread{}, fmt.Errorf("failed to decode thread %s: %w", id, err)
	}
	return t, nil
}

// List returns all threads, newest first. Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read threads directory: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		t, err := s.Load(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts.After(out[j].Ts) })
	return out, nil
}

// Delete removes a thread. Deleting an unknown id returns ErrNotFound.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
