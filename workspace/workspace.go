package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// StateDirName is the per-workspace directory holding config, threads and
// exports.
const StateDirName = ".playground"

// DetectWorkspace returns the enclosing Git repository root, or the current
// directory when there is none.
func DetectWorkspace() (string, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if gitRoot := findGitRoot(pwd); gitRoot != "" {
		return gitRoot, nil
	}
	return pwd, nil
}

// findGitRoot walks up the directory tree looking for a .git entry
func findGitRoot(startPath string) string {
	if startPath == "" {
		return ""
	}
	currentPath := startPath
	for {
		if _, err := os.Stat(filepath.Join(currentPath, ".git")); err == nil {
			return currentPath
		}
		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			return ""
		}
		currentPath = parentPath
	}
}

// StateDir is <workspace>/.playground.
func StateDir(workspacePath string) string {
	return filepath.Join(workspacePath, StateDirName)
}

// ThreadsDir is where the file thread store keeps conversations.
func ThreadsDir(workspacePath string) string {
	return filepath.Join(StateDir(workspacePath), "threads")
}

// EnsureStateDir creates the state directory and its threads directory, and
// keeps the state directory out of version control.
func EnsureStateDir(workspacePath string) error {
	if err := os.MkdirAll(ThreadsDir(workspacePath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", StateDirName, err)
	}
	ignore := filepath.Join(StateDir(workspacePath), ".gitignore")
	if _, err := os.Stat(ignore); os.IsNotExist(err) {
		if err := os.WriteFile(ignore, []byte("*\n"), 0644); err != nil {
			return err
		}
	}
	return nil
}
