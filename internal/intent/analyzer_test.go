package intent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
	"github.com/davidrioja/reelforge/internal/testutil"
)

func snapshotOf(scenes ...*core.SceneEntity) *core.SceneSnapshot {
	for i, s := range scenes {
		s.Order = i
	}
	return &core.SceneSnapshot{ProjectID: "proj-1", Version: 1, Scenes: scenes, TakenAt: time.Now()}
}

func namedScene(id core.SceneID, name string) *core.SceneEntity {
	s := core.NewScene(id, "proj-1", "export default function A() {\n  return null;\n}")
	s.Meta.Name = name
	return s
}

func brokenScene(id core.SceneID, name, errText string) *core.SceneEntity {
	s := namedScene(id, name)
	s.Status = core.SceneStatusBroken
	s.Error = errText
	return s
}

func decide(t *testing.T, response string, snap *core.SceneSnapshot, prompt string) (*core.Decision, error) {
	t.Helper()
	analyzer := NewAnalyzer(testutil.NewMockChat(response), nil, logging.NewNop())
	return analyzer.Decide(context.Background(), Request{ProjectID: "proj-1", Prompt: prompt}, snap)
}

func TestDecideSingleTool(t *testing.T) {
	response := `{"mode": "tool", "reasoning": "new scene requested",
		"tool": {"name": "generateScene", "prompt": "a sunrise over mountains"}}`

	decision, err := decide(t, response, snapshotOf(), "make a sunrise scene")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionTool {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionTool)
	}
	if decision.Invocation.Tool != core.ToolGenerateScene {
		t.Errorf("Tool = %s, want %s", decision.Invocation.Tool, core.ToolGenerateScene)
	}
	if decision.Invocation.Input.Prompt != "a sunrise over mountains" {
		t.Errorf("Input.Prompt = %q", decision.Invocation.Input.Prompt)
	}
}

func TestDecideTargetMustResolveInSnapshot(t *testing.T) {
	response := `{"mode": "tool", "tool": {"name": "editScene", "target_scene_id": "ghost", "prompt": "make it blue"}}`

	_, err := decide(t, response, snapshotOf(namedScene("s1", "Intro"), namedScene("s2", "Outro")), "edit it")
	if err == nil {
		t.Fatal("Decide() accepted a target not in the snapshot")
	}
	if !core.IsCategory(err, core.ErrCatValidation) {
		t.Errorf("category = %s, want %s", core.GetCategory(err), core.ErrCatValidation)
	}
}

func TestDecideWorkflowPlan(t *testing.T) {
	response := `{"mode": "workflow", "reasoning": "analyze then edit",
		"steps": [
			{"name": "analyzeImage", "prompt": "describe the logo"},
			{"name": "editSceneWithImage", "target_scene_id": "s1", "prompt": "match the logo colors"}
		]}`

	decision, err := decide(t, response, snapshotOf(namedScene("s1", "Intro")), "make scene 1 match my logo")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionWorkflow {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionWorkflow)
	}
	if len(decision.Plan.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(decision.Plan.Steps))
	}
	if got := decision.Plan.Steps[1].Invocation.TargetID; got != "s1" {
		t.Errorf("step 2 target = %s, want s1", got)
	}
	if decision.Plan.Steps[0].UseCreatedScene != -1 {
		t.Errorf("step 1 UseCreatedScene = %d, want -1", decision.Plan.Steps[0].UseCreatedScene)
	}
}

func TestDecideWorkflowDependencyOnCreatedScene(t *testing.T) {
	response := `{"mode": "workflow",
		"steps": [
			{"name": "generateScene", "prompt": "an intro card"},
			{"name": "trimScene", "use_created_scene": 0, "prompt": "make it 2 seconds"}
		]}`

	decision, err := decide(t, response, snapshotOf(), "add a short intro card")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if got := decision.Plan.Steps[1].UseCreatedScene; got != 0 {
		t.Errorf("UseCreatedScene = %d, want 0", got)
	}
}

func TestDecideClarification(t *testing.T) {
	response := `{"mode": "clarify", "clarification": "Which scene should turn blue?"}`

	decision, err := decide(t, response, snapshotOf(namedScene("s1", "A"), namedScene("s2", "B")), "make it blue")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionClarify {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionClarify)
	}
	if decision.Clarification == "" {
		t.Error("clarification question is empty")
	}
}

func TestDecideUnsupportedNeverFabricates(t *testing.T) {
	response := `{"mode": "unsupported", "reasoning": "request is about billing"}`

	decision, err := decide(t, response, snapshotOf(), "cancel my subscription")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionUnsupported {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionUnsupported)
	}
	if decision.Invocation != nil || decision.Plan != nil {
		t.Error("unsupported decision carries an invocation")
	}
}

func TestDecideFabricatedToolDegradesToClarification(t *testing.T) {
	response := `{"mode": "tool", "tool": {"name": "composeSymphony", "prompt": "test"}}`

	decision, err := decide(t, response, snapshotOf(), "write music")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionClarify {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionClarify)
	}
	if decision.Invocation != nil || decision.Plan != nil {
		t.Error("a tool outside the enumeration produced an invocation")
	}
	if decision.Clarification == "" {
		t.Error("clarification question is empty")
	}
}

func TestDecideMalformedDocumentDegradesToClarification(t *testing.T) {
	responses := []string{
		"Sure, I'll generate that scene for you!",
		`{"mode": "tool", "tool": {`,
		`{"mode": "interpretive_dance"}`,
		`{"mode": "tool"}`,
		`{"mode": "workflow", "steps": []}`,
	}
	for _, response := range responses {
		decision, err := decide(t, response, snapshotOf(), "make a scene")
		if err != nil {
			t.Fatalf("Decide(%q) error = %v", response, err)
		}
		if decision.Mode != core.DecisionClarify {
			t.Errorf("Decide(%q) mode = %s, want %s", response, decision.Mode, core.DecisionClarify)
		}
		if decision.Invocation != nil || decision.Plan != nil {
			t.Errorf("Decide(%q) fabricated an invocation", response)
		}
	}
}

func TestDecideFixBindsSingleBrokenScene(t *testing.T) {
	response := `{"mode": "tool", "tool": {"name": "fixBrokenScene"}}`
	broken := brokenScene("s2", "Outro", "unclosed brace")
	snap := snapshotOf(namedScene("s1", "Intro"), broken)

	decision, err := decide(t, response, snap, "fix this")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionTool {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionTool)
	}
	inv := decision.Invocation
	if inv.TargetID != "s2" {
		t.Errorf("TargetID = %s, want s2", inv.TargetID)
	}
	if inv.Input.ErrorMessage != "unclosed brace" {
		t.Errorf("ErrorMessage = %q, want the literal error text", inv.Input.ErrorMessage)
	}
	if inv.Input.SceneCode != broken.Code {
		t.Error("invocation does not carry the broken source")
	}
}

func TestDecideFixWithMultipleBrokenScenesAsksWhich(t *testing.T) {
	response := `{"mode": "tool", "tool": {"name": "fixBrokenScene"}}`
	snap := snapshotOf(
		brokenScene("s1", "Intro", "no default export"),
		brokenScene("s2", "Outro", "unclosed brace"),
	)

	decision, err := decide(t, response, snap, "fix this")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionClarify {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionClarify)
	}
	if !strings.Contains(decision.Clarification, "Intro") || !strings.Contains(decision.Clarification, "Outro") {
		t.Errorf("Clarification = %q, want both candidates named", decision.Clarification)
	}
}

func TestDecideFixWithNothingBroken(t *testing.T) {
	response := `{"mode": "tool", "tool": {"name": "fixBrokenScene"}}`

	_, err := decide(t, response, snapshotOf(namedScene("s1", "Intro")), "fix this")
	if err == nil {
		t.Fatal("Decide() succeeded with nothing broken")
	}
	if !core.IsCategory(err, core.ErrCatState) {
		t.Errorf("category = %s, want %s", core.GetCategory(err), core.ErrCatState)
	}
}

func TestDecideEditWithoutTargetSingleScene(t *testing.T) {
	response := `{"mode": "tool", "tool": {"name": "editScene", "prompt": "make it blue"}}`

	decision, err := decide(t, response, snapshotOf(namedScene("s1", "Only")), "make it blue")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Invocation.TargetID != "s1" {
		t.Errorf("TargetID = %s, want s1", decision.Invocation.TargetID)
	}
}

func TestDecideEditWithoutTargetManyScenes(t *testing.T) {
	response := `{"mode": "tool", "tool": {"name": "editScene", "prompt": "make it blue"}}`

	decision, err := decide(t, response, snapshotOf(namedScene("s1", "A"), namedScene("s2", "B")), "make it blue")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Mode != core.DecisionClarify {
		t.Fatalf("Mode = %s, want %s", decision.Mode, core.DecisionClarify)
	}
}

func TestDecidePromptCarriesSnapshot(t *testing.T) {
	chat := testutil.NewMockChat(`{"mode": "unsupported"}`)
	analyzer := NewAnalyzer(chat, nil, logging.NewNop())

	snap := snapshotOf(namedScene("scene-abc", "Logo reveal"))
	if _, err := analyzer.Decide(context.Background(), Request{ProjectID: "proj-1", Prompt: "hello"}, snap); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	reqs := chat.Requests()
	if len(reqs) != 1 {
		t.Fatalf("chat calls = %d, want 1", len(reqs))
	}
	sent := reqs[0].Messages[len(reqs[0].Messages)-1].Content
	if !strings.Contains(sent, "scene-abc") || !strings.Contains(sent, "Logo reveal") {
		t.Error("decision prompt does not describe the current scenes")
	}
}

func TestDecideEmptyPrompt(t *testing.T) {
	_, err := decide(t, `{"mode": "unsupported"}`, snapshotOf(), "   ")
	if !core.IsCategory(err, core.ErrCatValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}
