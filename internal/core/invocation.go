package core

import "fmt"

// ToolName identifies one of the closed set of scene tools. Dispatch is an
// exhaustive switch over these values, never an open string lookup.
type ToolName string

const (
	ToolGenerateScene      ToolName = "generateScene"
	ToolEditScene          ToolName = "editScene"
	ToolDeleteScene        ToolName = "deleteScene"
	ToolTrimScene          ToolName = "trimScene"
	ToolFixBrokenScene     ToolName = "fixBrokenScene"
	ToolAnalyzeImage       ToolName = "analyzeImage"
	ToolEditSceneWithImage ToolName = "editSceneWithImage"
	ToolGenerateFromBrand  ToolName = "generateFromBrand"
)

// AllTools returns every member of the tool enumeration.
func AllTools() []ToolName {
	return []ToolName{
		ToolGenerateScene,
		ToolEditScene,
		ToolDeleteScene,
		ToolTrimScene,
		ToolFixBrokenScene,
		ToolAnalyzeImage,
		ToolEditSceneWithImage,
		ToolGenerateFromBrand,
	}
}

// ToolKind classifies what a tool does to the scene list.
type ToolKind string

const (
	// ToolKindCreate tools add a new scene.
	ToolKindCreate ToolKind = "create"
	// ToolKindEdit tools mutate an existing scene's code or timing.
	ToolKindEdit ToolKind = "edit"
	// ToolKindDelete tools remove a scene.
	ToolKindDelete ToolKind = "delete"
	// ToolKindRepair tools rewrite a broken scene from its error.
	ToolKindRepair ToolKind = "repair"
	// ToolKindAnalyze tools produce information only, no scene mutation.
	ToolKindAnalyze ToolKind = "analyze"
)

// KindOf returns the mutation class of a tool. Unknown names return an
// error so a fabricated tool can never reach execution.
func KindOf(name ToolName) (ToolKind, error) {
	switch name {
	case ToolGenerateScene, ToolGenerateFromBrand:
		return ToolKindCreate, nil
	case ToolEditScene, ToolTrimScene, ToolEditSceneWithImage:
		return ToolKindEdit, nil
	case ToolDeleteScene:
		return ToolKindDelete, nil
	case ToolFixBrokenScene:
		return ToolKindRepair, nil
	case ToolAnalyzeImage:
		return ToolKindAnalyze, nil
	default:
		return "", ErrValidation("UNKNOWN_TOOL", fmt.Sprintf("unknown tool: %s", name))
	}
}

// RequiresTarget reports whether a tool must name an existing scene.
func RequiresTarget(name ToolName) bool {
	kind, err := KindOf(name)
	if err != nil {
		return false
	}
	return kind == ToolKindEdit || kind == ToolKindDelete || kind == ToolKindRepair
}

// ToolInput carries the structured parameters for one tool invocation.
// Fields are populated per tool kind; unused fields stay zero.
type ToolInput struct {
	Prompt       string        `json:"prompt,omitempty"`
	SceneCode    string        `json:"scene_code,omitempty"`
	SceneName    string        `json:"scene_name,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ImageURLs    []string      `json:"image_urls,omitempty"`
	ImageFacts   string        `json:"image_facts,omitempty"`
	Brand        *BrandContext `json:"brand,omitempty"`
	TargetFrames int           `json:"target_frames,omitempty"`
}

// ToolOutput is the normalized result of one tool invocation.
type ToolOutput struct {
	Code      string `json:"code,omitempty"`
	Frames    int    `json:"frames,omitempty"`
	Name      string `json:"name,omitempty"`
	Facts     string `json:"facts,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	TokensIn  int    `json:"tokens_in,omitempty"`
	TokensOut int    `json:"tokens_out,omitempty"`
}

// ToolInvocation is one planned call of a tool against the scene list.
// Invocations are ephemeral: created per request, retained only in logs.
type ToolInvocation struct {
	Tool      ToolName  `json:"tool"`
	TargetID  SceneID   `json:"target_scene_id,omitempty"`
	Input     ToolInput `json:"input"`
	Reasoning string    `json:"reasoning,omitempty"`
}

// Validate checks the invocation against the supplied snapshot. A target id
// that does not resolve in the snapshot is rejected before any tool runs.
func (inv *ToolInvocation) Validate(snap *SceneSnapshot) error {
	kind, err := KindOf(inv.Tool)
	if err != nil {
		return err
	}
	if RequiresTarget(inv.Tool) {
		if inv.TargetID == "" {
			return ErrValidation("TARGET_REQUIRED",
				fmt.Sprintf("tool %s requires a target scene", inv.Tool))
		}
		if _, ok := snap.Find(inv.TargetID); !ok {
			return ErrValidation("UNKNOWN_TARGET_SCENE",
				fmt.Sprintf("target scene %s not in snapshot", inv.TargetID))
		}
	}
	if kind == ToolKindCreate && inv.TargetID != "" {
		return ErrValidation("UNEXPECTED_TARGET",
			fmt.Sprintf("tool %s does not take a target scene", inv.Tool))
	}
	return nil
}

// PlanStep is one step of a WorkflowPlan. A step either names its target
// scene explicitly or declares, via UseCreatedScene, a dependency on the
// scene produced by an earlier creation step.
type PlanStep struct {
	Invocation ToolInvocation `json:"invocation"`

	// UseCreatedScene, when >= 0, is the index of the earlier step whose
	// created scene this step targets. Inter-step data flow happens only
	// through this explicit declaration.
	UseCreatedScene int `json:"use_created_scene"`
}

// NewPlanStep creates a step with no inter-step dependency.
func NewPlanStep(inv ToolInvocation) PlanStep {
	return PlanStep{Invocation: inv, UseCreatedScene: -1}
}

// DependsOnStep creates a step targeting the scene produced by step idx.
func DependsOnStep(inv ToolInvocation, idx int) PlanStep {
	return PlanStep{Invocation: inv, UseCreatedScene: idx}
}

// WorkflowPlan is an ordered sequence of tool invocations planned for one
// request. Steps execute strictly in declared order.
type WorkflowPlan struct {
	Steps     []PlanStep `json:"steps"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// Validate checks plan-level invariants: at least one step, dependencies
// referencing only earlier creation-class steps, and each step valid
// against the snapshot (creation targets resolve at execution time, so
// dependent steps skip the target check here).
func (p *WorkflowPlan) Validate(snap *SceneSnapshot) error {
	if len(p.Steps) == 0 {
		return ErrValidation("EMPTY_PLAN", "workflow plan has no steps")
	}
	for i, step := range p.Steps {
		if step.UseCreatedScene >= 0 {
			if step.UseCreatedScene >= i {
				return ErrValidation("FORWARD_DEPENDENCY",
					fmt.Sprintf("step %d depends on later step %d", i, step.UseCreatedScene))
			}
			depKind, err := KindOf(p.Steps[step.UseCreatedScene].Invocation.Tool)
			if err != nil {
				return err
			}
			if depKind != ToolKindCreate {
				return ErrValidation("DEPENDENCY_NOT_CREATION",
					fmt.Sprintf("step %d depends on step %d which creates no scene", i, step.UseCreatedScene))
			}
			// Target is filled in at execution time from the produced id.
			if _, err := KindOf(step.Invocation.Tool); err != nil {
				return err
			}
			continue
		}
		if err := step.Invocation.Validate(snap); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// StepStatus is the per-step outcome surfaced after plan execution.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepResult records what happened to one plan step. Partial completion is
// surfaced per step; earlier applied mutations are never rolled back.
type StepResult struct {
	Index     int        `json:"index"`
	Tool      ToolName   `json:"tool"`
	Status    StepStatus `json:"status"`
	SceneID   SceneID    `json:"scene_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	Reasoning string     `json:"reasoning,omitempty"`
}
