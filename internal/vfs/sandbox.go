package vfs

import (
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// BillySandbox materializes files into a billy filesystem: memfs for an
// in-process preview, osfs to mirror a project onto disk.
type BillySandbox struct {
	fs billy.Filesystem
}

// NewMemorySandbox returns a sandbox held entirely in memory.
func NewMemorySandbox() *BillySandbox {
	return &BillySandbox{fs: memfs.New()}
}

// NewDiskSandbox mirrors writes under root.
func NewDiskSandbox(root string) (*BillySandbox, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &BillySandbox{fs: osfs.New(root)}, nil
}

// NewSandbox wraps an existing billy filesystem.
func NewSandbox(fs billy.Filesystem) *BillySandbox {
	return &BillySandbox{fs: fs}
}

func (b *BillySandbox) WriteFile(name string, data []byte) error {
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := b.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return util.WriteFile(b.fs, name, data, 0644)
}

// ReadFile returns the materialized content of name.
func (b *BillySandbox) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(b.fs, name)
}

// Filesystem exposes the underlying billy filesystem.
func (b *BillySandbox) Filesystem() billy.Filesystem {
	return b.fs
}
