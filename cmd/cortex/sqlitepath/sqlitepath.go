// Package sqlitepath resolves where the chat history database lives.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/cortex/pkg/dotdir"
)

const (
	// EnvSQLite overrides the configured path.
	EnvSQLite = "CORTEX_SQLITE"

	historyFile = "history.db"
)

// ResolveSQLitePath picks the history database: override, then $CORTEX_SQLITE,
// then history.db inside the resolved .cortex/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvSQLite)); envPath != "" {
		return envPath, nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, historyFile), nil
}
