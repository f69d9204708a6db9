package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/davidrioja/reelforge/internal/compile"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/intent"
	"github.com/davidrioja/reelforge/internal/logging"
	"github.com/davidrioja/reelforge/internal/testutil"
)

const timedScene = "const o = interpolate(frame, [0, 90], [0, 1]);\n" +
	"export default function Scene() {\n  return <AbsoluteFill />;\n}"

type coordinatorFixture struct {
	coordinator *Coordinator
	store       *testutil.MemoryStore
	bus         *events.Bus
	chat        *testutil.MockChat
}

func newCoordinator(t *testing.T, responses []string, opts []CoordinatorOption, tools ...core.ToolAdapter) *coordinatorFixture {
	t.Helper()
	store := testutil.NewMemoryStore()
	bus := events.New(64)
	t.Cleanup(bus.Close)

	chat := testutil.NewMockChat(responses...)
	logger := logging.NewNop()
	analyzer := intent.NewAnalyzer(chat, store, logger)
	processor := NewResultProcessor(store, bus, logger)
	executor := NewExecutor(testutil.NewMockRegistry(tools...), store, processor, bus, logger)
	compiler := compile.NewCompiler(store, bus, logger)

	return &coordinatorFixture{
		coordinator: NewCoordinator(analyzer, executor, compiler, store, store, bus, logger, opts...),
		store:       store,
		bus:         bus,
		chat:        chat,
	}
}

func TestHandleRequestGeneratesSceneAndTimeline(t *testing.T) {
	gen := testutil.NewMockTool(core.ToolGenerateScene).WithOutput(&core.ToolOutput{Code: timedScene, Name: "Sunrise"})
	fx := newCoordinator(t,
		[]string{`{"mode": "tool", "tool": {"name": "generateScene", "prompt": "a sunrise"}}`},
		nil, gen)

	outcome, err := fx.coordinator.HandleRequest(context.Background(),
		intent.Request{ProjectID: "proj-1", Prompt: "make a sunrise scene"})
	if err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	if len(outcome.Steps) != 1 || outcome.Steps[0].Status != core.StepStatusCompleted {
		t.Fatalf("steps = %+v, want one completed step", outcome.Steps)
	}
	if outcome.Timeline == nil {
		t.Fatal("outcome has no timeline")
	}
	if outcome.Timeline.TotalFrames != 90 {
		t.Errorf("TotalFrames = %d, want the inferred 90", outcome.Timeline.TotalFrames)
	}
	if outcome.Timeline.BrokenCount() != 0 {
		t.Errorf("BrokenCount = %d, want 0", outcome.Timeline.BrokenCount())
	}

	// Both turns landed in the conversation history.
	history, _ := fx.store.Recent(context.Background(), "proj-1", 10)
	if len(history) < 2 {
		t.Errorf("history has %d messages, want user and assistant turns", len(history))
	}
}

func TestHandleRequestClarificationMutatesNothing(t *testing.T) {
	fx := newCoordinator(t,
		[]string{`{"mode": "clarify", "clarification": "Which scene?"}`}, nil)

	outcome, err := fx.coordinator.HandleRequest(context.Background(),
		intent.Request{ProjectID: "proj-1", Prompt: "make it blue"})
	if err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}
	if outcome.Clarification != "Which scene?" {
		t.Errorf("Clarification = %q", outcome.Clarification)
	}
	if len(outcome.Steps) != 0 {
		t.Error("clarification ran steps")
	}

	snap, _ := fx.store.Snapshot(context.Background(), "proj-1")
	if len(snap.Scenes) != 0 {
		t.Error("clarification mutated the store")
	}
}

func TestHandleRequestBrokenToolOutputDegradesToPlaceholder(t *testing.T) {
	gen := testutil.NewMockTool(core.ToolGenerateScene).WithOutput(
		&core.ToolOutput{Code: "export default function Broken() {\n  return (<div />;\n}", Name: "Broken"})
	fx := newCoordinator(t,
		[]string{`{"mode": "tool", "tool": {"name": "generateScene", "prompt": "x"}}`},
		nil, gen)

	brokenCh := fx.bus.SubscribePriority(events.TypeSceneBroken)

	outcome, err := fx.coordinator.HandleRequest(context.Background(),
		intent.Request{ProjectID: "proj-1", Prompt: "make a scene"})
	if err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	// The step succeeded: the tool ran and its mutation applied. The
	// compile failure is isolated and surfaces as a placeholder.
	if outcome.Steps[0].Status != core.StepStatusCompleted {
		t.Errorf("step status = %s, want completed", outcome.Steps[0].Status)
	}
	if outcome.Timeline == nil || outcome.Timeline.BrokenCount() != 1 {
		t.Fatal("timeline does not carry the placeholder entry")
	}
	if !outcome.Timeline.Entries[0].Placeholder {
		t.Error("broken scene entry is not a placeholder")
	}

	select {
	case ev := <-brokenCh:
		broken := ev.(events.SceneBrokenEvent)
		if broken.ErrorMessage == "" {
			t.Error("repair signal carries no error text")
		}
	case <-time.After(time.Second):
		t.Fatal("no repair signal emitted")
	}
}

func TestHandleRepairRoutesThroughAnalyzer(t *testing.T) {
	brokenCode := "export default function Broken() {\n  return (<div />;\n}"
	var got core.ToolInput
	fix := testutil.NewMockTool(core.ToolFixBrokenScene).WithInvokeFunc(
		func(_ context.Context, input core.ToolInput) (*core.ToolOutput, error) {
			got = input
			return &core.ToolOutput{Code: timedScene}, nil
		})
	fx := newCoordinator(t,
		[]string{`{"mode": "tool", "tool": {"name": "fixBrokenScene"}}`},
		nil, fix)

	broken := core.NewScene("S2", "proj-1", brokenCode)
	broken.Status = core.SceneStatusBroken
	broken.Error = "mismatched \")\", expected closer for \"(\" opened at line 2"
	broken.Meta.Name = "Outro"
	fx.store.Seed("proj-1", broken)

	outcome, err := fx.coordinator.HandleRepair(context.Background(), core.RepairRequest{
		ProjectID:  "proj-1",
		SceneID:    "S2",
		SceneName:  "Outro",
		ErrorText:  broken.Error,
		BrokenCode: brokenCode,
		Origin:     core.RepairUser,
		DetectedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("HandleRepair() error = %v", err)
	}
	if len(outcome.Steps) != 1 || outcome.Steps[0].Tool != core.ToolFixBrokenScene {
		t.Fatalf("steps = %+v, want one fixBrokenScene step", outcome.Steps)
	}
	if outcome.Steps[0].SceneID != "S2" {
		t.Errorf("repaired scene = %s, want S2", outcome.Steps[0].SceneID)
	}
	if !strings.Contains(got.ErrorMessage, "mismatched") {
		t.Errorf("ErrorMessage = %q, want the literal compile error", got.ErrorMessage)
	}
	if got.SceneCode != brokenCode {
		t.Error("repair tool did not receive the exact broken source")
	}

	// The repaired scene compiled valid in the recomposed timeline.
	if outcome.Timeline == nil || outcome.Timeline.BrokenCount() != 0 {
		t.Error("timeline still carries a broken entry after repair")
	}
}

func TestAutomaticRepairLoop(t *testing.T) {
	brokenOut := &core.ToolOutput{Code: "export default function Broken() {\n  return (<div />;\n}", Name: "Flaky"}
	gen := testutil.NewMockTool(core.ToolGenerateScene).WithOutput(brokenOut)
	fix := testutil.NewMockTool(core.ToolFixBrokenScene).WithInvokeFunc(
		func(_ context.Context, _ core.ToolInput) (*core.ToolOutput, error) {
			return &core.ToolOutput{Code: timedScene}, nil
		})
	fx := newCoordinator(t,
		[]string{
			`{"mode": "tool", "tool": {"name": "generateScene", "prompt": "x"}}`,
			`{"mode": "tool", "tool": {"name": "fixBrokenScene"}}`,
		},
		[]CoordinatorOption{WithAutoRepair(true)}, gen, fix)

	repaired := fx.bus.Subscribe(events.TypeSceneRepaired)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fx.coordinator.RunRepairLoop(ctx)

	if _, err := fx.coordinator.HandleRequest(ctx,
		intent.Request{ProjectID: "proj-1", Prompt: "make a scene"}); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	select {
	case <-repaired:
	case <-time.After(2 * time.Second):
		t.Fatal("automatic repair never completed")
	}
	if fix.CallCount() != 1 {
		t.Errorf("fix tool calls = %d, want 1", fix.CallCount())
	}
}

func TestRepairAttemptsAreBounded(t *testing.T) {
	fx := newCoordinator(t, nil, []CoordinatorOption{WithAutoRepair(true), WithMaxRepairAttempts(2)})

	if !fx.coordinator.recordAttempt("s1") || !fx.coordinator.recordAttempt("s1") {
		t.Fatal("attempts within the budget were rejected")
	}
	if fx.coordinator.recordAttempt("s1") {
		t.Error("attempt beyond the budget was accepted")
	}
	fx.coordinator.resetAttempts("s1")
	if !fx.coordinator.recordAttempt("s1") {
		t.Error("attempts not reset after successful repair")
	}
}

func TestHandleRequestSingleFlightPerProject(t *testing.T) {
	fx := newCoordinator(t, []string{`{"mode": "unsupported"}`}, nil)

	if err := fx.coordinator.acquire("proj-1"); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer fx.coordinator.release("proj-1")

	// The busy answer comes back immediately, not after a deadline.
	start := time.Now()
	_, err := fx.coordinator.HandleRequest(context.Background(), intent.Request{ProjectID: "proj-1", Prompt: "hello"})
	if err == nil {
		t.Fatal("second request proceeded while the project was busy")
	}
	if !core.IsCategory(err, core.ErrCatState) {
		t.Errorf("category = %s, want %s", core.GetCategory(err), core.ErrCatState)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Errorf("busy rejection took %v, want immediate", waited)
	}

	// A different project is unaffected.
	outcome, err := fx.coordinator.HandleRequest(context.Background(),
		intent.Request{ProjectID: "proj-2", Prompt: "hello"})
	if err != nil {
		t.Fatalf("request for idle project failed: %v", err)
	}
	if outcome.Decision.Mode != core.DecisionUnsupported {
		t.Errorf("Mode = %s, want %s", outcome.Decision.Mode, core.DecisionUnsupported)
	}
}
