package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Open returns the backend named by kind ("leveldb", "bolt" or "memory") rooted
// at path. Parent directories are created as needed.
func Open(kind, path string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "memory":
		return NewMemDB(), nil
	case "leveldb", "":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, err
		}
		return NewLevelDB(path)
	case "bolt":
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return NewBoltDB(path, nil)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", kind)
	}
}
