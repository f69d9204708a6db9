package state

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/davidrioja/reelforge/internal/core"
)

// Store is the combined persistence surface both backends provide.
type Store interface {
	core.SceneStore
	core.HistoryStore
}

// Open creates a store for the given backend name. "sqlite" is the
// default; "json" keeps everything in one human-readable file.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	case "json":
		return NewJSONStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend %q (want sqlite or json)", backend)
	}
}

// Close shuts down a store if its backend holds resources.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
