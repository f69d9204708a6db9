package core

// Operation is the kind of scene mutation a tool result translates into.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Confidence tags how a duration was inferred. It is diagnostic only and
// never changes behavior.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DurationSource names which inference rule produced a duration.
type DurationSource string

const (
	// DurationFromTool means the tool supplied an explicit frame count.
	DurationFromTool DurationSource = "tool"
	// DurationFromInterpolate came from animation time-range markers.
	DurationFromInterpolate DurationSource = "interpolate"
	// DurationFromFrameThreshold came from frame comparison guards.
	DurationFromFrameThreshold DurationSource = "frame_threshold"
	// DurationFromSequence came from delay+duration sums in sequence markers.
	DurationFromSequence DurationSource = "sequence"
	// DurationFromDefault is the documented fallback.
	DurationFromDefault DurationSource = "default"
	// DurationUnchanged means an edit did not touch timing; the scene keeps
	// its previous duration.
	DurationUnchanged DurationSource = "unchanged"
)

// SceneMutation is the canonical mutation a processed tool result applies
// to the Scene Store. It is the only way scene state changes.
type SceneMutation struct {
	ProjectID ProjectID `json:"project_id"`
	SceneID   SceneID   `json:"scene_id"`
	Operation Operation `json:"operation"`

	NewCode     string   `json:"new_code,omitempty"`
	NewDuration Duration `json:"new_duration,omitempty"`
	Name        string   `json:"name,omitempty"`
	Tool        ToolName `json:"tool,omitempty"`

	// Diagnostics for how the duration was resolved.
	DurationSource     DurationSource `json:"duration_source,omitempty"`
	DurationConfidence Confidence     `json:"duration_confidence,omitempty"`
}

// Validate checks mutation invariants.
func (m *SceneMutation) Validate() error {
	if m.ProjectID == "" {
		return ErrValidation("PROJECT_ID_REQUIRED", "mutation project ID cannot be empty")
	}
	if m.SceneID == "" {
		return ErrValidation("SCENE_ID_REQUIRED", "mutation scene ID cannot be empty")
	}
	switch m.Operation {
	case OpCreate, OpUpdate:
		if m.NewCode == "" {
			return ErrValidation("CODE_REQUIRED", "create/update mutation needs code")
		}
	case OpDelete:
	default:
		return ErrValidation("UNKNOWN_OPERATION", "unknown mutation operation: "+string(m.Operation))
	}
	return nil
}
