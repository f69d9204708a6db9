package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/logging"
)

func TestObserveCountsByOutcome(t *testing.T) {
	bus := events.New(16)
	defer bus.Close()
	c := NewCollector(bus, logging.NewNop())

	c.observe(events.NewRequestAcceptedEvent("p1", "r1", "make a scene"))
	c.observe(events.NewStepCompletedEvent("p1", "r1", 0, "generateScene", "s1"))
	c.observe(events.NewStepCompletedEvent("p1", "r1", 1, "trimScene", "s1"))
	c.observe(events.NewStepFailedEvent("p1", "r1", 2, "editScene", "boom"))
	c.observe(events.NewSceneBrokenEvent("p1", "s1", "Intro", "unclosed brace", "{", "h1"))
	c.observe(events.NewSceneRepairedEvent("p1", "s1", "automatic"))
	c.observe(events.NewTimelineRecomposedEvent("p1", 3, 240, 1))

	if got := promtest.ToFloat64(c.requestsTotal); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if got := promtest.ToFloat64(c.stepsTotal.WithLabelValues("generateScene", "completed")); got != 1 {
		t.Errorf("generateScene completed = %v, want 1", got)
	}
	if got := promtest.ToFloat64(c.stepsTotal.WithLabelValues("editScene", "failed")); got != 1 {
		t.Errorf("editScene failed = %v, want 1", got)
	}
	if got := promtest.ToFloat64(c.compilesTotal.WithLabelValues("broken")); got != 1 {
		t.Errorf("broken compiles = %v, want 1", got)
	}
	if got := promtest.ToFloat64(c.repairsTotal.WithLabelValues("automatic")); got != 1 {
		t.Errorf("automatic repairs = %v, want 1", got)
	}
	if got := promtest.ToFloat64(c.timelineFrames); got != 240 {
		t.Errorf("timeline frames = %v, want 240", got)
	}
}

func TestRunConsumesBusEvents(t *testing.T) {
	bus := events.New(16)
	defer bus.Close()
	c := NewCollector(bus, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	// Give the subscription a moment to register before publishing.
	time.Sleep(10 * time.Millisecond)
	bus.Publish(events.NewWorkflowCompletedEvent("p1", "r1", 2))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if promtest.ToFloat64(c.workflowsTotal.WithLabelValues("completed")) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("collector never observed the published event")
}

func TestHandlerServesRegistry(t *testing.T) {
	bus := events.New(16)
	defer bus.Close()
	c := NewCollector(bus, logging.NewNop())
	c.observe(events.NewRequestAcceptedEvent("p1", "r1", "hi"))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "reelforge_requests_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
