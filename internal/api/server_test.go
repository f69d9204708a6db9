package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/davidrioja/reelforge/internal/compile"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/intent"
	"github.com/davidrioja/reelforge/internal/logging"
	"github.com/davidrioja/reelforge/internal/service"
	"github.com/davidrioja/reelforge/internal/testutil"
)

const timedScene = "const o = interpolate(frame, [0, 90], [0, 1]);\n" +
	"export default function Scene() {\n  return <AbsoluteFill />;\n}"

type serverFixture struct {
	server *Server
	store  *testutil.MemoryStore
	bus    *events.Bus
}

func newServer(t *testing.T, responses []string, tools ...core.ToolAdapter) *serverFixture {
	t.Helper()
	store := testutil.NewMemoryStore()
	bus := events.New(64)
	t.Cleanup(bus.Close)

	logger := logging.NewNop()
	analyzer := intent.NewAnalyzer(testutil.NewMockChat(responses...), store, logger)
	processor := service.NewResultProcessor(store, bus, logger)
	executor := service.NewExecutor(testutil.NewMockRegistry(tools...), store, processor, bus, logger)
	compiler := compile.NewCompiler(store, bus, logger)
	coordinator := service.NewCoordinator(analyzer, executor, compiler, store, store, bus, logger)

	return &serverFixture{
		server: NewServer(coordinator, compiler, store, bus, logger),
		store:  store,
		bus:    bus,
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	fx := newServer(t, nil)

	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequestEndpointGeneratesScene(t *testing.T) {
	gen := testutil.NewMockTool(core.ToolGenerateScene).
		WithOutput(&core.ToolOutput{Code: timedScene, Name: "Sunrise"})
	fx := newServer(t,
		[]string{`{"mode": "tool", "tool": {"name": "generateScene", "prompt": "a sunrise"}}`},
		gen)

	rec := postJSON(t, fx.server.Handler(), "/api/v1/projects/proj-1/requests",
		requestBody{Prompt: "make a sunrise scene"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var outcome service.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decoding outcome: %v", err)
	}
	if len(outcome.Steps) != 1 || outcome.Steps[0].Status != core.StepStatusCompleted {
		t.Fatalf("steps = %+v", outcome.Steps)
	}
	if outcome.Timeline == nil || outcome.Timeline.TotalFrames != 90 {
		t.Errorf("timeline = %+v, want 90 total frames", outcome.Timeline)
	}
}

func TestRequestEndpointClarification(t *testing.T) {
	fx := newServer(t, []string{`{"mode": "clarify", "clarification": "Which scene?"}`})

	rec := postJSON(t, fx.server.Handler(), "/api/v1/projects/proj-1/requests",
		requestBody{Prompt: "make it blue"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Which scene?") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequestEndpointBadJSON(t *testing.T) {
	fx := newServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/proj-1/requests",
		strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRequestEndpointEmptyPromptMapsToBadRequest(t *testing.T) {
	fx := newServer(t, nil)

	rec := postJSON(t, fx.server.Handler(), "/api/v1/projects/proj-1/requests",
		requestBody{Prompt: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body.Category != string(core.ErrCatValidation) {
		t.Errorf("category = %q, want validation", body.Category)
	}
}

func TestScenesEndpoint(t *testing.T) {
	fx := newServer(t, nil)
	scene := core.NewScene("s1", "proj-1", timedScene)
	scene.Meta.Name = "Sunrise"
	fx.store.Seed("proj-1", scene)

	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/projects/proj-1/scenes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap core.SceneSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(snap.Scenes) != 1 || snap.Scenes[0].Meta.Name != "Sunrise" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestTimelineEndpointSubstitutesPlaceholders(t *testing.T) {
	fx := newServer(t, nil)
	good := core.NewScene("s1", "proj-1", timedScene)
	bad := core.NewScene("s2", "proj-1", "export default function B() {\n  return (<div />;\n}")
	fx.store.Seed("proj-1", good, bad)

	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/projects/proj-1/timeline", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var timeline core.Timeline
	if err := json.Unmarshal(rec.Body.Bytes(), &timeline); err != nil {
		t.Fatalf("decoding timeline: %v", err)
	}
	if len(timeline.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(timeline.Entries))
	}
	if timeline.BrokenCount() != 1 {
		t.Errorf("BrokenCount = %d, want 1", timeline.BrokenCount())
	}
}

func TestReorderEndpoint(t *testing.T) {
	fx := newServer(t, nil)
	fx.store.Seed("proj-1",
		core.NewScene("s1", "proj-1", timedScene),
		core.NewScene("s2", "proj-1", timedScene))

	rec := postJSON(t, fx.server.Handler(), "/api/v1/projects/proj-1/scenes/reorder",
		reorderBody{Order: []core.SceneID{"s2", "s1"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	snap, _ := fx.store.Snapshot(context.Background(), "proj-1")
	if snap.Scenes[0].ID != "s2" {
		t.Errorf("first scene = %s, want s2", snap.Scenes[0].ID)
	}

	rec = postJSON(t, fx.server.Handler(), "/api/v1/projects/proj-1/scenes/reorder",
		reorderBody{Order: []core.SceneID{"s1"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("partial reorder status = %d, want 400", rec.Code)
	}
}

func TestRepairEndpointRejectsValidScene(t *testing.T) {
	fx := newServer(t, nil)
	scene := core.NewScene("s1", "proj-1", timedScene)
	scene.Status = core.SceneStatusValid
	fx.store.Seed("proj-1", scene)

	rec := postJSON(t, fx.server.Handler(), "/api/v1/projects/proj-1/repair",
		repairBody{SceneID: "s1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, fx.server.Handler(), "/api/v1/projects/proj-1/repair",
		repairBody{SceneID: "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSSEStreamsEvents(t *testing.T) {
	fx := newServer(t, nil)
	srv := httptest.NewServer(fx.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?project=proj-1", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("reading stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return strings.Join(lines, "\n")
			}
			lines = append(lines, line)
		}
	}

	if first := readEvent(); !strings.Contains(first, "event: connected") {
		t.Fatalf("first event = %q", first)
	}

	fx.bus.Publish(events.NewSceneRepairedEvent("proj-1", "s1", "user"))
	fx.bus.Publish(events.NewSceneRepairedEvent("other", "s9", "user"))

	second := readEvent()
	if !strings.Contains(second, "event: scene_repaired") {
		t.Errorf("second event = %q", second)
	}
	if !strings.Contains(second, `"s1"`) {
		t.Errorf("second event payload = %q", second)
	}
}

func TestMetricsRouteOnlyWhenConfigured(t *testing.T) {
	fx := newServer(t, nil)

	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unconfigured /metrics status = %d, want 404", rec.Code)
	}
}
