// Package dotdir manages the .cortex/ and ~/.cortex directories.
//
// The directory holds config.toml, credentials.toml, the chat history
// database and the session state that lets "cortex chat" resume the last
// conversation.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".cortex"

	// EnvHome names a directory used in place of any discovered .cortex/.
	EnvHome = "CORTEX_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target resolves and creates the .cortex/ directory to use, returning its
// absolute path. The first match wins:
//  1. overrideDir
//  2. $CORTEX_HOME
//  3. a .cortex/ directory in the working directory or one of its parents
//  4. ~/.cortex
func (m *Manager) Target(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		dir = os.Getenv(EnvHome)
	}
	if dir == "" {
		dir = findUp(dirName)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating cortex directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// findUp returns the nearest directory called name, starting at the working
// directory and walking towards the root. It returns "" when there is none.
func findUp(name string) string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
