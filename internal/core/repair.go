package core

import "time"

// RepairOrigin records what triggered a repair.
type RepairOrigin string

const (
	RepairAutomatic RepairOrigin = "automatic"
	RepairUser      RepairOrigin = "user"
)

// RepairRequest converts a detected compile failure back into a corrective
// request. It carries the literal error text and the exact broken source so
// the repair tool reasons about the concrete failure, not a paraphrase.
type RepairRequest struct {
	ProjectID  ProjectID    `json:"project_id"`
	SceneID    SceneID      `json:"scene_id"`
	SceneName  string       `json:"scene_name"`
	ErrorText  string       `json:"error_text"`
	BrokenCode string       `json:"broken_code"`
	Origin     RepairOrigin `json:"origin"`
	DetectedAt time.Time    `json:"detected_at"`
}

// Validate checks repair request invariants.
func (r *RepairRequest) Validate() error {
	if r.SceneID == "" {
		return ErrValidation("SCENE_ID_REQUIRED", "repair request needs a scene ID")
	}
	if r.ErrorText == "" {
		return ErrValidation("ERROR_TEXT_REQUIRED", "repair request needs the literal error text")
	}
	return nil
}

// Invocation builds the corrective tool call for this repair. Repair
// re-enters through the same analyzer/executor path as any request; this
// is the invocation the analyzer produces for it.
func (r *RepairRequest) Invocation() ToolInvocation {
	return ToolInvocation{
		Tool:     ToolFixBrokenScene,
		TargetID: r.SceneID,
		Input: ToolInput{
			SceneName:    r.SceneName,
			SceneCode:    r.BrokenCode,
			ErrorMessage: r.ErrorText,
		},
		Reasoning: "repair " + string(r.Origin) + " trigger for scene " + string(r.SceneID),
	}
}
