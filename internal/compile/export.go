package compile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davidrioja/reelforge/internal/core"
)

// ExportManifest writes the composed timeline as a JSON manifest for the
// render pipeline to consume. The write is atomic so a renderer polling
// the file never reads a half-written manifest.
func ExportManifest(timeline *core.Timeline, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(timeline, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling timeline: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("timeline-%s.json", timeline.ProjectID))
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}
