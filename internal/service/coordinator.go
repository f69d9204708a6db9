package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidrioja/reelforge/internal/compile"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/intent"
	"github.com/davidrioja/reelforge/internal/logging"
)

// Coordinator is the top of the orchestration engine. It serializes
// requests per project, routes them through the intent analyzer and the
// executor, recompiles the timeline, and drives the repair feedback loop.
type Coordinator struct {
	analyzer *intent.Analyzer
	executor *Executor
	compiler *compile.Compiler
	store    core.SceneStore
	history  core.HistoryStore
	bus      *events.Bus
	logger   *logging.Logger

	mu    sync.Mutex
	locks map[core.ProjectID]chan struct{}

	repairMu   sync.Mutex
	attempts   map[core.SceneID]int
	maxRepairs int
	autoRepair bool
}

// CoordinatorOption configures the coordinator.
type CoordinatorOption func(*Coordinator)

// WithAutoRepair enables automatic repair of broken scenes.
func WithAutoRepair(enabled bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.autoRepair = enabled
	}
}

// WithMaxRepairAttempts bounds automatic repair attempts per scene.
func WithMaxRepairAttempts(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxRepairs = n
		}
	}
}

// NewCoordinator wires the orchestration engine together.
func NewCoordinator(
	analyzer *intent.Analyzer,
	executor *Executor,
	compiler *compile.Compiler,
	store core.SceneStore,
	history core.HistoryStore,
	bus *events.Bus,
	logger *logging.Logger,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		analyzer:   analyzer,
		executor:   executor,
		compiler:   compiler,
		store:      store,
		history:    history,
		bus:        bus,
		logger:     logger,
		locks:      make(map[core.ProjectID]chan struct{}),
		attempts:   make(map[core.SceneID]int),
		maxRepairs: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Outcome is the result of handling one request.
type Outcome struct {
	RequestID     string            `json:"request_id"`
	Decision      *core.Decision    `json:"decision"`
	Steps         []core.StepResult `json:"steps,omitempty"`
	Timeline      *core.Timeline    `json:"timeline,omitempty"`
	Clarification string            `json:"clarification,omitempty"`
}

// HandleRequest processes one request end to end. Requests for the same
// project are single-flight: one runs to completion against the scene list
// before the next is accepted, so two workflows never race over the same
// identifier space.
func (c *Coordinator) HandleRequest(ctx context.Context, req intent.Request) (*Outcome, error) {
	if err := c.acquire(req.ProjectID); err != nil {
		return nil, err
	}
	defer c.release(req.ProjectID)

	requestID := uuid.New().String()
	log := c.logger.WithProject(string(req.ProjectID)).WithRequest(requestID)
	c.bus.Publish(events.NewRequestAcceptedEvent(string(req.ProjectID), requestID, req.Prompt))
	c.appendHistory(ctx, req.ProjectID, "user", req.Prompt)

	snap, err := c.store.Snapshot(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	decision, err := c.analyzer.Decide(ctx, req, snap)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{RequestID: requestID, Decision: decision}
	switch decision.Mode {
	case core.DecisionClarify:
		outcome.Clarification = decision.Clarification
		c.bus.Publish(events.NewRequestClarifyEvent(string(req.ProjectID), requestID, decision.Clarification))
		c.appendHistory(ctx, req.ProjectID, "assistant", decision.Clarification)
		return outcome, nil

	case core.DecisionUnsupported:
		c.appendHistory(ctx, req.ProjectID, "assistant", "request not supported: "+decision.Reasoning)
		return outcome, nil

	case core.DecisionTool:
		outcome.Steps, err = c.executor.ExecuteInvocation(ctx, req.ProjectID, requestID, *decision.Invocation)

	case core.DecisionWorkflow:
		outcome.Steps, err = c.executor.ExecutePlan(ctx, req.ProjectID, requestID, decision.Plan)
	}
	execErr := err

	// The timeline recomposes even after a failed step: mutations from
	// completed steps stand, and the output stays playable.
	snap, snapErr := c.store.Snapshot(ctx, req.ProjectID)
	if snapErr != nil {
		if execErr != nil {
			return outcome, execErr
		}
		return outcome, snapErr
	}
	timeline, _, compileErr := c.compiler.CompileProject(ctx, snap)
	if compileErr == nil {
		outcome.Timeline = timeline
	}

	c.appendHistory(ctx, req.ProjectID, "assistant", summarize(outcome))
	if execErr != nil {
		return outcome, execErr
	}
	log.Info("request handled", "steps", len(outcome.Steps))
	return outcome, compileErr
}

// HandleRepair routes a repair request back through the same analyzer and
// executor path as any ordinary request. There is no privileged bypass.
func (c *Coordinator) HandleRepair(ctx context.Context, rr core.RepairRequest) (*Outcome, error) {
	if err := rr.Validate(); err != nil {
		return nil, err
	}
	name := rr.SceneName
	if name == "" {
		name = string(rr.SceneID)
	}
	prompt := fmt.Sprintf("Fix the broken scene %q (id %s). Compile error: %s", name, rr.SceneID, rr.ErrorText)

	outcome, err := c.HandleRequest(ctx, intent.Request{ProjectID: rr.ProjectID, Prompt: prompt})
	if err != nil {
		return outcome, err
	}
	if repaired(outcome) {
		c.bus.Publish(events.NewSceneRepairedEvent(string(rr.ProjectID), string(rr.SceneID), string(rr.Origin)))
		c.resetAttempts(rr.SceneID)
	}
	return outcome, nil
}

// RunRepairLoop consumes broken-scene signals and, when automatic repair
// is enabled, turns each into a corrective request. It blocks until the
// context is done or the bus closes.
func (c *Coordinator) RunRepairLoop(ctx context.Context) {
	ch := c.bus.SubscribePriority(events.TypeSceneBroken)
	defer c.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			broken, ok := ev.(events.SceneBrokenEvent)
			if !ok {
				continue
			}
			c.handleBrokenScene(ctx, broken)
		}
	}
}

func (c *Coordinator) handleBrokenScene(ctx context.Context, ev events.SceneBrokenEvent) {
	log := c.logger.WithProject(ev.Project).WithScene(ev.SceneID)
	if !c.autoRepair {
		log.Info("scene broken, automatic repair disabled", "error", ev.ErrorMessage)
		return
	}
	if !c.recordAttempt(core.SceneID(ev.SceneID)) {
		log.Warn("scene exceeded automatic repair attempts", "max", c.maxRepairs)
		return
	}

	rr := core.RepairRequest{
		ProjectID:  core.ProjectID(ev.Project),
		SceneID:    core.SceneID(ev.SceneID),
		SceneName:  ev.SceneName,
		ErrorText:  ev.ErrorMessage,
		BrokenCode: ev.BrokenCode,
		Origin:     core.RepairAutomatic,
		DetectedAt: time.Now(),
	}
	if _, err := c.HandleRepair(ctx, rr); err != nil {
		log.Warn("automatic repair failed", "error", err)
	}
}

// recordAttempt counts one repair attempt, reporting false once the scene
// has used up its budget.
func (c *Coordinator) recordAttempt(id core.SceneID) bool {
	c.repairMu.Lock()
	defer c.repairMu.Unlock()
	if c.attempts[id] >= c.maxRepairs {
		return false
	}
	c.attempts[id]++
	return true
}

func (c *Coordinator) resetAttempts(id core.SceneID) {
	c.repairMu.Lock()
	defer c.repairMu.Unlock()
	delete(c.attempts, id)
}

// acquire takes the project's single-flight slot. A project already
// running a workflow answers busy immediately; the caller retries with
// fresher context instead of queuing behind an unknown wait.
func (c *Coordinator) acquire(projectID core.ProjectID) error {
	c.mu.Lock()
	sem, ok := c.locks[projectID]
	if !ok {
		sem = make(chan struct{}, 1)
		c.locks[projectID] = sem
	}
	c.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return nil
	default:
		return core.ErrState(core.CodeProjectBusy,
			fmt.Sprintf("project %s is busy with another request", projectID))
	}
}

func (c *Coordinator) release(projectID core.ProjectID) {
	c.mu.Lock()
	sem := c.locks[projectID]
	c.mu.Unlock()
	<-sem
}

func (c *Coordinator) appendHistory(ctx context.Context, projectID core.ProjectID, role, content string) {
	if c.history == nil || content == "" {
		return
	}
	msg := &core.Message{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := c.history.Append(ctx, msg); err != nil {
		c.logger.Warn("appending history failed", "error", err)
	}
}

// repaired reports whether the outcome completed a repair step.
func repaired(o *Outcome) bool {
	for _, step := range o.Steps {
		if step.Tool == core.ToolFixBrokenScene && step.Status == core.StepStatusCompleted {
			return true
		}
	}
	return false
}

func summarize(o *Outcome) string {
	completed := 0
	for _, s := range o.Steps {
		if s.Status == core.StepStatusCompleted {
			completed++
		}
	}
	return fmt.Sprintf("executed %d of %d steps", completed, len(o.Steps))
}
