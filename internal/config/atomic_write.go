package config

import (
	"os"
	"path/filepath"
)

// AtomicWrite writes data to a file atomically. It writes to a temp file
// in the same directory and renames it over the target, preserving the
// target's existing permissions.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".")
	if err != nil {
		return err
	}
	defer tmpFile.Close()

	tmpPath := tmpFile.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if err := tmpFile.Chmod(perm); err != nil {
		cleanup()
		return err
	}
	if _, err := tmpFile.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// DefaultYAML is the starter config written by "reelforge config init".
const DefaultYAML = `# reelforge configuration
log:
  level: info
  format: auto

server:
  host: 127.0.0.1
  port: 8080
  cors_origins:
    - http://localhost:3000

llm:
  base_url: https://api.openai.com/v1
  # api_key: set REELFORGE_LLM_API_KEY instead of storing it here
  model: gpt-4o-mini
  max_retries: 3
  retry_delay: 1s

state:
  backend: sqlite
  path: .reelforge/state/scenes.db

compile:
  export_dir: .reelforge/export

repair:
  auto: true
  max_attempts: 2
`
