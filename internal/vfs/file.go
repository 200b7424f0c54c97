// Package vfs is the in-memory project filesystem backing the live preview.
package vfs

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoSandbox is returned when a file is constructed without a sandbox.
var ErrNoSandbox = errors.New("virtual file requires a sandbox")

// Sandbox is the runtime a virtual file is materialized against. The file
// only threads it through; it never inspects it.
type Sandbox interface {
	WriteFile(path string, data []byte) error
}

// VirtualFile is one addressable file of the project.
type VirtualFile struct {
	mu       sync.RWMutex
	filepath string
	content  string
	sandbox  Sandbox
}

// NewVirtualFile creates a file bound to sandbox. The initial content is not
// written to the sandbox until the first Write.
func NewVirtualFile(path, content string, sandbox Sandbox) (*VirtualFile, error) {
	if sandbox == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSandbox)
	}
	return &VirtualFile{filepath: path, content: content, sandbox: sandbox}, nil
}

func (f *VirtualFile) Filepath() string { return f.filepath }

func (f *VirtualFile) Content() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.content
}

// Write replaces the whole content and materializes it in the sandbox.
func (f *VirtualFile) Write(content string) error {
	f.mu.Lock()
	f.content = content
	f.mu.Unlock()

	if err := f.sandbox.WriteFile(f.filepath, []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", f.filepath, err)
	}
	return nil
}
