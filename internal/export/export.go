// Package export copies the virtual filesystem out of the process.
package export

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"

	"playground/internal/logging"
	"playground/internal/vfs"
)

// Exporter writes a snapshot of files somewhere and reports how many it
// wrote.
type Exporter interface {
	Export(ctx context.Context, files []*vfs.VirtualFile) (int, error)
}

// FSExporter writes files into a billy filesystem.
type FSExporter struct {
	fs     billy.Filesystem
	logger *zerolog.Logger
}

// NewFSExporter exports into fs.
func NewFSExporter(fs billy.Filesystem, logger *zerolog.Logger) *FSExporter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &FSExporter{fs: fs, logger: logger}
}

// NewDirExporter exports into a directory on disk, created if missing.
func NewDirExporter(dir string, logger *zerolog.Logger) (*FSExporter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	fs := osfs.New(dir)
	if err := fs.MkdirAll(".", 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return NewFSExporter(fs, logger), nil
}

// Export implements Exporter.
func (e *FSExporter) Export(ctx context.Context, files []*vfs.VirtualFile) (int, error) {
	written := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		name, err := cleanPath(f.Filepath())
		if err != nil {
			return written, err
		}
		if dir := path.Dir(name); dir != "." {
			if err := e.fs.MkdirAll(dir, 0755); err != nil {
				return written, fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := util.WriteFile(e.fs, name, []byte(f.Content()), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", name, err)
		}
		written++
	}
	e.logger.Info().Int("files", written).Str("root", e.fs.Root()).Msg("exported project")
	return written, nil
}

// cleanPath rejects paths that would escape the export root.
func cleanPath(p string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(p))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid export path %q", p)
	}
	return clean, nil
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".vue":
		return "text/x-vue; charset=utf-8"
	case ".ts":
		return "text/typescript; charset=utf-8"
	case "":
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
