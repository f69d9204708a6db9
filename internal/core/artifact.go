package core

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CodeHash identifies a particular revision of a scene's source.
type CodeHash string

// HashCode returns the hash of a scene source text.
func HashCode(code string) CodeHash {
	sum := sha256.Sum256([]byte(code))
	return CodeHash(hex.EncodeToString(sum[:]))
}

// CompiledArtifact is the output of compiling one scene. It depends only on
// that scene's own code; there is no cross-scene compile-time coupling.
type CompiledArtifact struct {
	SceneID     SceneID   `json:"scene_id"`
	Name        string    `json:"name"`
	Hash        CodeHash  `json:"hash"`
	Duration    Duration  `json:"duration"`
	Module      string    `json:"module,omitempty"`
	Placeholder bool      `json:"placeholder"`
	Error       string    `json:"error,omitempty"`
	CompiledAt  time.Time `json:"compiled_at"`
}

// ErrorLocation is a best-effort hint at where in the source a compile
// failure was detected.
type ErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column,omitempty"`
}

// CompilationResult is the per-scene outcome of one compile pass.
type CompilationResult struct {
	SceneID  SceneID           `json:"scene_id"`
	Success  bool              `json:"success"`
	Artifact *CompiledArtifact `json:"artifact,omitempty"`
	Message  string            `json:"message,omitempty"`
	Location *ErrorLocation    `json:"location,omitempty"`
}

// Timeline is the composed, always-playable output: one entry per scene in
// order, with placeholders where compilation failed.
type Timeline struct {
	ProjectID   ProjectID          `json:"project_id"`
	Version     int64              `json:"version"`
	Entries     []CompiledArtifact `json:"entries"`
	TotalFrames int                `json:"total_frames"`
	FPS         int                `json:"fps"`
	ComposedAt  time.Time          `json:"composed_at"`
}

// BrokenCount returns how many entries are placeholders.
func (t *Timeline) BrokenCount() int {
	n := 0
	for _, e := range t.Entries {
		if e.Placeholder {
			n++
		}
	}
	return n
}
