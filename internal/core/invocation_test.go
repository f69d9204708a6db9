package core

import "testing"

func snapWith(ids ...SceneID) *SceneSnapshot {
	snap := &SceneSnapshot{ProjectID: "p1", Version: 1}
	for _, id := range ids {
		snap.Scenes = append(snap.Scenes, NewScene(id, "p1", "code"))
	}
	return snap
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		tool ToolName
		want ToolKind
	}{
		{ToolGenerateScene, ToolKindCreate},
		{ToolGenerateFromBrand, ToolKindCreate},
		{ToolEditScene, ToolKindEdit},
		{ToolTrimScene, ToolKindEdit},
		{ToolEditSceneWithImage, ToolKindEdit},
		{ToolDeleteScene, ToolKindDelete},
		{ToolFixBrokenScene, ToolKindRepair},
		{ToolAnalyzeImage, ToolKindAnalyze},
	}
	for _, tt := range tests {
		got, err := KindOf(tt.tool)
		if err != nil {
			t.Fatalf("KindOf(%s) error = %v", tt.tool, err)
		}
		if got != tt.want {
			t.Errorf("KindOf(%s) = %s, want %s", tt.tool, got, tt.want)
		}
	}

	if _, err := KindOf("makeCoffee"); err == nil {
		t.Error("KindOf() should reject unknown tool")
	}
}

func TestToolInvocation_Validate(t *testing.T) {
	snap := snapWith("s1")

	inv := ToolInvocation{Tool: ToolEditScene, TargetID: "s1", Input: ToolInput{Prompt: "make it blue"}}
	if err := inv.Validate(snap); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// target missing from snapshot is rejected before any tool runs
	inv.TargetID = "ghost"
	err := inv.Validate(snap)
	if err == nil {
		t.Fatal("Validate() should reject unknown target scene")
	}
	if !IsCategory(err, ErrCatValidation) {
		t.Errorf("category = %s, want validation", GetCategory(err))
	}

	// edit without target
	inv.TargetID = ""
	if err := inv.Validate(snap); err == nil {
		t.Error("Validate() should require a target for edit tools")
	}

	// creation tool with a target makes no sense
	create := ToolInvocation{Tool: ToolGenerateScene, TargetID: "s1"}
	if err := create.Validate(snap); err == nil {
		t.Error("Validate() should reject target on a creation tool")
	}
}

func TestWorkflowPlan_Validate(t *testing.T) {
	snap := snapWith("s1")

	empty := &WorkflowPlan{}
	if err := empty.Validate(snap); err == nil {
		t.Error("empty plan should be invalid")
	}

	// create then edit-the-created-scene is the canonical multi-step plan
	plan := &WorkflowPlan{Steps: []PlanStep{
		NewPlanStep(ToolInvocation{Tool: ToolGenerateScene, Input: ToolInput{Prompt: "intro"}}),
		DependsOnStep(ToolInvocation{Tool: ToolEditScene, Input: ToolInput{Prompt: "add title"}}, 0),
	}}
	if err := plan.Validate(snap); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// forward dependency
	bad := &WorkflowPlan{Steps: []PlanStep{
		DependsOnStep(ToolInvocation{Tool: ToolEditScene}, 0),
	}}
	if err := bad.Validate(snap); err == nil {
		t.Error("plan with self/forward dependency should be invalid")
	}

	// dependency on a non-creating step
	bad = &WorkflowPlan{Steps: []PlanStep{
		NewPlanStep(ToolInvocation{Tool: ToolEditScene, TargetID: "s1"}),
		DependsOnStep(ToolInvocation{Tool: ToolEditScene}, 0),
	}}
	if err := bad.Validate(snap); err == nil {
		t.Error("dependency on a non-creation step should be invalid")
	}
}

func TestMutation_Validate(t *testing.T) {
	m := &SceneMutation{ProjectID: "p1", SceneID: "s1", Operation: OpCreate, NewCode: "code"}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	m.NewCode = ""
	if err := m.Validate(); err == nil {
		t.Error("create without code should be invalid")
	}

	del := &SceneMutation{ProjectID: "p1", SceneID: "s1", Operation: OpDelete}
	if err := del.Validate(); err != nil {
		t.Errorf("delete mutation error = %v", err)
	}

	unknown := &SceneMutation{ProjectID: "p1", SceneID: "s1", Operation: "merge"}
	if err := unknown.Validate(); err == nil {
		t.Error("unknown operation should be invalid")
	}
}

func TestRepairRequest_Invocation(t *testing.T) {
	r := &RepairRequest{
		ProjectID:  "p1",
		SceneID:    "s2",
		SceneName:  "Outro",
		ErrorText:  "ReferenceError: spring is not defined",
		BrokenCode: "export default function Outro() { spring(); }",
		Origin:     RepairUser,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	inv := r.Invocation()
	if inv.Tool != ToolFixBrokenScene {
		t.Errorf("tool = %s, want fixBrokenScene", inv.Tool)
	}
	if inv.TargetID != "s2" {
		t.Errorf("target = %s, want s2", inv.TargetID)
	}
	if inv.Input.ErrorMessage != r.ErrorText {
		t.Error("invocation must carry the literal error text")
	}
	if inv.Input.SceneCode != r.BrokenCode {
		t.Error("invocation must carry the exact broken source")
	}

	missing := &RepairRequest{SceneID: "s2"}
	if err := missing.Validate(); err == nil {
		t.Error("repair request without error text should be invalid")
	}
}
