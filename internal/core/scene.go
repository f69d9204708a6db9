package core

import (
	"fmt"
	"time"
)

// SceneID uniquely identifies a scene within a project.
type SceneID string

// ProjectID identifies a project (one ordered scene list per project).
type ProjectID string

// SceneStatus represents the compilation state of a scene.
type SceneStatus string

const (
	// SceneStatusPending means the scene has code that has not been compiled yet.
	// New scenes and freshly edited scenes start here.
	SceneStatusPending SceneStatus = "pending"

	// SceneStatusValid means the scene compiled successfully.
	SceneStatusValid SceneStatus = "valid"

	// SceneStatusBroken means compilation failed. Broken is terminal until a
	// new edit or repair resets the scene to pending.
	SceneStatusBroken SceneStatus = "broken"
)

// Default timing used when a tool supplies no duration and the code carries
// no timing markers.
const (
	DefaultSceneFrames = 150
	DefaultFPS         = 30
)

// Duration is a scene's length expressed as an integer frame count at a
// fixed frame rate.
type Duration struct {
	Frames int `json:"frames"`
	FPS    int `json:"fps"`
}

// DefaultDuration returns the documented fallback duration.
func DefaultDuration() Duration {
	return Duration{Frames: DefaultSceneFrames, FPS: DefaultFPS}
}

// Seconds returns the duration in seconds.
func (d Duration) Seconds() float64 {
	if d.FPS <= 0 {
		return 0
	}
	return float64(d.Frames) / float64(d.FPS)
}

// IsZero reports whether the duration is unset.
func (d Duration) IsZero() bool {
	return d.Frames == 0
}

// Complexity tags how involved editing a scene is expected to be.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// SceneMeta holds display and provenance metadata for a scene.
type SceneMeta struct {
	Name       string     `json:"name"`
	Tool       ToolName   `json:"tool,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
}

// SceneEntity is one timed segment of the output video with its own
// generated source code.
type SceneEntity struct {
	ID        SceneID     `json:"id"`
	ProjectID ProjectID   `json:"project_id"`
	Order     int         `json:"order"`
	Code      string      `json:"code"`
	Duration  Duration    `json:"duration"`
	Status    SceneStatus `json:"status"`
	Meta      SceneMeta   `json:"meta"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewScene creates a pending scene with the given id and code.
func NewScene(id SceneID, projectID ProjectID, code string) *SceneEntity {
	now := time.Now()
	return &SceneEntity{
		ID:        id,
		ProjectID: projectID,
		Code:      code,
		Duration:  DefaultDuration(),
		Status:    SceneStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkValid transitions the scene to valid after successful compilation.
// Re-marking a valid scene is allowed: an unchanged scene recompiled in a
// fresh process reaches the same outcome. A broken scene must go through
// pending first.
func (s *SceneEntity) MarkValid() error {
	if s.Status == SceneStatusBroken {
		return fmt.Errorf("cannot mark scene valid in %s state", s.Status)
	}
	s.Status = SceneStatusValid
	s.Error = ""
	s.UpdatedAt = time.Now()
	return nil
}

// MarkBroken transitions the scene to broken with the compile error.
// Re-marking a broken scene refreshes the error text; a valid scene must
// go through pending first.
func (s *SceneEntity) MarkBroken(errMsg string) error {
	if s.Status == SceneStatusValid {
		return fmt.Errorf("cannot mark scene broken in %s state", s.Status)
	}
	s.Status = SceneStatusBroken
	s.Error = errMsg
	s.UpdatedAt = time.Now()
	return nil
}

// RecordCompileOutcome applies a compile outcome through the status state
// machine. Stores persist outcomes only through this path, so a transition
// the state machine forbids never reaches disk.
func (s *SceneEntity) RecordCompileOutcome(status SceneStatus, compileErr string) error {
	switch status {
	case SceneStatusValid:
		return s.MarkValid()
	case SceneStatusBroken:
		return s.MarkBroken(compileErr)
	default:
		return fmt.Errorf("%s is not a compile outcome", status)
	}
}

// ResetPending returns an edited or repaired scene to the pending state.
// This is the only way out of broken.
func (s *SceneEntity) ResetPending() {
	s.Status = SceneStatusPending
	s.Error = ""
	s.UpdatedAt = time.Now()
}

// IsBroken reports whether the scene is in the broken state.
func (s *SceneEntity) IsBroken() bool {
	return s.Status == SceneStatusBroken
}

// Clone returns a deep copy of the scene.
func (s *SceneEntity) Clone() *SceneEntity {
	c := *s
	return &c
}

// Validate checks scene invariants.
func (s *SceneEntity) Validate() error {
	if s.ID == "" {
		return ErrValidation("SCENE_ID_REQUIRED", "scene ID cannot be empty")
	}
	if s.ProjectID == "" {
		return ErrValidation("PROJECT_ID_REQUIRED", "scene project ID cannot be empty")
	}
	if s.Duration.Frames < 0 {
		return ErrValidation("NEGATIVE_DURATION", "scene duration cannot be negative")
	}
	return nil
}

// SceneSnapshot is a versioned, immutable view of a project's ordered scene
// list. Every Intent Analyzer and Executor call works against an explicit
// snapshot; ambient reads of the current list are not allowed.
type SceneSnapshot struct {
	ProjectID ProjectID      `json:"project_id"`
	Version   int64          `json:"version"`
	Scenes    []*SceneEntity `json:"scenes"`
	TakenAt   time.Time      `json:"taken_at"`
}

// Find returns the scene with the given id, if present.
func (snap *SceneSnapshot) Find(id SceneID) (*SceneEntity, bool) {
	for _, s := range snap.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Broken returns all scenes currently in the broken state, in order.
func (snap *SceneSnapshot) Broken() []*SceneEntity {
	var broken []*SceneEntity
	for _, s := range snap.Scenes {
		if s.IsBroken() {
			broken = append(broken, s)
		}
	}
	return broken
}

// MostRecentlyBroken returns the broken scene with the latest update time.
func (snap *SceneSnapshot) MostRecentlyBroken() (*SceneEntity, bool) {
	var latest *SceneEntity
	for _, s := range snap.Scenes {
		if !s.IsBroken() {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	return latest, latest != nil
}

// TotalDuration returns the sum of all scene durations in frames.
// Broken scenes count with their last known duration so the timeline
// length is stable across failures.
func (snap *SceneSnapshot) TotalDuration() int {
	total := 0
	for _, s := range snap.Scenes {
		total += s.Duration.Frames
	}
	return total
}
