// Package metrics exposes Prometheus counters for the orchestration
// engine. The collector observes the event bus rather than being called
// from the service layer, so instrumentation never touches the execution
// path.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/logging"
)

// Collector subscribes to engine events and translates them into metrics.
type Collector struct {
	bus    *events.Bus
	logger *logging.Logger
	reg    *prometheus.Registry

	stepsTotal     *prometheus.CounterVec
	workflowsTotal *prometheus.CounterVec
	compilesTotal  *prometheus.CounterVec
	repairsTotal   *prometheus.CounterVec
	requestsTotal  prometheus.Counter
	timelineFrames prometheus.Gauge
	brokenScenes   prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector(bus *events.Bus, logger *logging.Logger) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		bus:    bus,
		logger: logger,
		reg:    reg,
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_steps_total",
			Help: "Workflow steps executed, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		workflowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_workflows_total",
			Help: "Workflows finished, by outcome.",
		}, []string{"outcome"}),
		compilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_scene_compiles_total",
			Help: "Scene compilations, by outcome.",
		}, []string{"outcome"}),
		repairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_scene_repairs_total",
			Help: "Broken scenes brought back to valid, by origin.",
		}, []string{"origin"}),
		requestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "reelforge_requests_total",
			Help: "User requests accepted by the coordinator.",
		}),
		timelineFrames: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reelforge_timeline_frames",
			Help: "Total frame count of the most recently composed timeline.",
		}),
		brokenScenes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reelforge_timeline_broken_scenes",
			Help: "Placeholder slots in the most recently composed timeline.",
		}),
	}
}

// Handler returns the HTTP handler serving the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Run consumes events until the context ends or the bus closes.
func (c *Collector) Run(ctx context.Context) {
	ch := c.bus.Subscribe(
		events.TypeRequestAccepted,
		events.TypeStepCompleted,
		events.TypeStepFailed,
		events.TypeWorkflowCompleted,
		events.TypeWorkflowFailed,
		events.TypeSceneCompiled,
		events.TypeSceneBroken,
		events.TypeSceneRepaired,
		events.TypeTimelineRecomposed,
	)
	defer c.bus.Unsubscribe(ch)

	c.logger.InfoContext(ctx, "metrics collector started")
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			c.observe(evt)
		}
	}
}

func (c *Collector) observe(evt events.Event) {
	switch e := evt.(type) {
	case events.RequestAcceptedEvent:
		c.requestsTotal.Inc()
	case events.StepCompletedEvent:
		c.stepsTotal.WithLabelValues(e.Tool, "completed").Inc()
	case events.StepFailedEvent:
		c.stepsTotal.WithLabelValues(e.Tool, "failed").Inc()
	case events.WorkflowCompletedEvent:
		c.workflowsTotal.WithLabelValues("completed").Inc()
	case events.WorkflowFailedEvent:
		c.workflowsTotal.WithLabelValues("failed").Inc()
	case events.SceneCompiledEvent:
		c.compilesTotal.WithLabelValues("valid").Inc()
	case events.SceneBrokenEvent:
		c.compilesTotal.WithLabelValues("broken").Inc()
	case events.SceneRepairedEvent:
		c.repairsTotal.WithLabelValues(e.Origin).Inc()
	case events.TimelineRecomposedEvent:
		c.timelineFrames.Set(float64(e.TotalFrames))
		c.brokenScenes.Set(float64(e.BrokenCount))
	}
}
