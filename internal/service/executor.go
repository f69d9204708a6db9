package service

import (
	"context"
	"fmt"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/logging"
)

// Executor runs a workflow plan's steps strictly in order. Each step's
// target id is forwarded to the tool adapter verbatim; a step depending on
// an earlier creation step receives exactly the id that step produced.
type Executor struct {
	registry  core.ToolRegistry
	store     core.SceneStore
	processor *ResultProcessor
	bus       *events.Bus
	logger    *logging.Logger
}

// NewExecutor creates a workflow executor.
func NewExecutor(registry core.ToolRegistry, store core.SceneStore, processor *ResultProcessor, bus *events.Bus, logger *logging.Logger) *Executor {
	return &Executor{
		registry:  registry,
		store:     store,
		processor: processor,
		bus:       bus,
		logger:    logger,
	}
}

// ExecuteInvocation runs a single invocation as a one-step plan.
func (e *Executor) ExecuteInvocation(ctx context.Context, projectID core.ProjectID, requestID string, inv core.ToolInvocation) ([]core.StepResult, error) {
	plan := &core.WorkflowPlan{Steps: []core.PlanStep{core.NewPlanStep(inv)}, Reasoning: inv.Reasoning}
	return e.ExecutePlan(ctx, projectID, requestID, plan)
}

// ExecutePlan executes the plan's steps sequentially. A step failure halts
// the remaining steps but never rolls back mutations already applied by
// earlier steps; per-step outcomes are returned alongside the first error.
// Cancellation lets the in-flight step finish and apply its result, then
// starts no further steps.
func (e *Executor) ExecutePlan(ctx context.Context, projectID core.ProjectID, requestID string, plan *core.WorkflowPlan) ([]core.StepResult, error) {
	log := e.logger.WithProject(string(projectID)).WithRequest(requestID)
	results := make([]core.StepResult, 0, len(plan.Steps))
	created := make(map[int]core.SceneID)

	// Facts from analyze steps flow into later steps that take them.
	var facts string

	var firstErr error
	for i, step := range plan.Steps {
		if firstErr != nil || ctx.Err() != nil {
			results = append(results, core.StepResult{
				Index:  i,
				Tool:   step.Invocation.Tool,
				Status: core.StepStatusSkipped,
			})
			continue
		}

		result, err := e.executeStep(ctx, projectID, requestID, i, step, created, &facts)
		results = append(results, result)
		if err != nil {
			firstErr = fmt.Errorf("step %d (%s): %w", i, step.Invocation.Tool, err)
			e.bus.Publish(events.NewStepFailedEvent(
				string(projectID), requestID, i, string(step.Invocation.Tool), err.Error()))
			log.Warn("plan step failed", "step", i, "tool", string(step.Invocation.Tool), "error", err)
			continue
		}
		e.bus.Publish(events.NewStepCompletedEvent(
			string(projectID), requestID, i, string(step.Invocation.Tool), string(result.SceneID)))
	}

	if firstErr != nil {
		failedAt := 0
		for _, r := range results {
			if r.Status == core.StepStatusFailed {
				failedAt = r.Index
				break
			}
		}
		e.bus.Publish(events.NewWorkflowFailedEvent(string(projectID), requestID, failedAt, firstErr.Error()))
		return results, firstErr
	}

	e.bus.Publish(events.NewWorkflowCompletedEvent(string(projectID), requestID, len(plan.Steps)))
	log.Info("plan completed", "steps", len(plan.Steps))
	return results, nil
}

func (e *Executor) executeStep(ctx context.Context, projectID core.ProjectID, requestID string, index int, step core.PlanStep, created map[int]core.SceneID, facts *string) (core.StepResult, error) {
	// A started step runs to completion and applies its result even when
	// the request is cancelled mid-flight; ExecutePlan gates between steps
	// and stops starting new ones.
	ctx = context.WithoutCancel(ctx)

	inv := step.Invocation
	result := core.StepResult{Index: index, Tool: inv.Tool, Status: core.StepStatusFailed}

	// A dependent step targets exactly the id its creation step produced.
	if step.UseCreatedScene >= 0 {
		id, ok := created[step.UseCreatedScene]
		if !ok {
			return result, core.ErrState("DEPENDENCY_UNFULFILLED",
				fmt.Sprintf("step %d produced no scene", step.UseCreatedScene))
		}
		inv.TargetID = id
	}

	// Re-read the snapshot at execution time, never one taken earlier in
	// the plan; earlier steps may have changed the scene list.
	snap, err := e.store.Snapshot(ctx, projectID)
	if err != nil {
		return result, err
	}
	if err := inv.Validate(snap); err != nil {
		return result, err
	}

	kind, err := core.KindOf(inv.Tool)
	if err != nil {
		return result, err
	}

	if kind == core.ToolKindRepair {
		target, _ := snap.Find(inv.TargetID)
		if target.Status == core.SceneStatusValid {
			// Repairing a valid scene is a no-op.
			result.Status = core.StepStatusCompleted
			result.SceneID = inv.TargetID
			result.Reasoning = "scene already valid, nothing to repair"
			return result, nil
		}
		if inv.Input.SceneCode == "" {
			inv.Input.SceneCode = target.Code
		}
		if inv.Input.ErrorMessage == "" {
			inv.Input.ErrorMessage = target.Error
		}
		if inv.Input.SceneName == "" {
			inv.Input.SceneName = target.Meta.Name
		}
	}

	// Edit-class tools see the current code of their target.
	if kind == core.ToolKindEdit {
		target, _ := snap.Find(inv.TargetID)
		inv.Input.SceneCode = target.Code
		if inv.Input.SceneName == "" {
			inv.Input.SceneName = target.Meta.Name
		}
	}
	if inv.Input.ImageFacts == "" {
		inv.Input.ImageFacts = *facts
	}

	e.bus.Publish(events.NewStepStartedEvent(
		string(projectID), requestID, index, string(inv.Tool), string(inv.TargetID)))

	adapter, err := e.registry.Get(inv.Tool)
	if err != nil {
		return result, err
	}

	out, err := adapter.Invoke(ctx, inv.Input)
	if err != nil {
		return result, core.ErrToolExecution(core.CodeToolFailed,
			fmt.Sprintf("tool %s failed", inv.Tool)).WithCause(err)
	}
	if out == nil {
		return result, core.ErrToolExecution(core.CodeEmptyToolOutput,
			fmt.Sprintf("tool %s returned nothing", inv.Tool))
	}
	if out.Facts != "" {
		*facts = out.Facts
	}

	mutation, _, err := e.processor.Process(ctx, projectID, inv, out)
	if err != nil {
		return result, err
	}

	result.Status = core.StepStatusCompleted
	result.Reasoning = out.Reasoning
	if mutation != nil {
		result.SceneID = mutation.SceneID
		if op := mutation.Operation; op == core.OpCreate {
			created[index] = mutation.SceneID
		}
	} else {
		result.SceneID = inv.TargetID
	}
	return result, nil
}
