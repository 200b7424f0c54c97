package vfs

import (
	"strings"
	"sync"
)

// PlaceholderName is the marker file synthesized for implied directories.
const PlaceholderName = ".gitkeep"

// Store maps project paths to files. Keys are unique; insertion order is
// kept for listing. Overwriting a path keeps its original position.
type Store struct {
	mu    sync.RWMutex
	files map[string]*VirtualFile
	order []string
}

func NewStore() *Store {
	return &Store{files: make(map[string]*VirtualFile)}
}

// Set stores file under path, replacing any previous entry.
func (s *Store) Set(path string, file *VirtualFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; !ok {
		s.order = append(s.order, path)
	}
	s.files[path] = file
}

func (s *Store) Get(path string) (*VirtualFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	return f, ok
}

// Keys returns the stored paths in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Files returns the stored files in insertion order.
func (s *Store) Files() []*VirtualFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*VirtualFile, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, s.files[p])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// HasDir reports whether any stored path lives under dir.
func (s *Store) HasDir(dir string) bool {
	prefix := dir + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.order {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Clear drops every entry. Only the owner of the store's lifecycle calls it.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]*VirtualFile)
	s.order = nil
}

// Dir returns every path segment of p except the last, or "" for a
// top-level file.
func Dir(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// Placeholder returns the marker path for dir. dir is used verbatim so the
// marker shares the prefix HasDir checks.
func Placeholder(dir string) string {
	return dir + "/" + PlaceholderName
}
