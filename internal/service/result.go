// Package service orchestrates requests: intent decisions are executed
// step by step, tool results are normalized into scene mutations, and
// compile failures feed back into corrective invocations.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/davidrioja/reelforge/internal/adapters/llm"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/logging"
)

// ResultProcessor translates a raw tool result into a canonical scene
// mutation and applies it to the store. Applying the mutation is the final
// action of processing one result, so store readers only ever observe
// fully-applied mutations.
type ResultProcessor struct {
	store  core.SceneStore
	bus    *events.Bus
	logger *logging.Logger
}

// NewResultProcessor creates a result processor writing to the given store.
func NewResultProcessor(store core.SceneStore, bus *events.Bus, logger *logging.Logger) *ResultProcessor {
	return &ResultProcessor{store: store, bus: bus, logger: logger}
}

// Process normalizes one tool output and applies the resulting mutation.
// Analyze-class tools mutate nothing and return a nil mutation. The
// processor strips wrapper artifacts (markdown fences) but never rewrites
// tool-supplied code to fix semantic problems.
func (p *ResultProcessor) Process(ctx context.Context, projectID core.ProjectID, inv core.ToolInvocation, out *core.ToolOutput) (*core.SceneMutation, *core.SceneSnapshot, error) {
	kind, err := core.KindOf(inv.Tool)
	if err != nil {
		return nil, nil, err
	}

	var mutation *core.SceneMutation
	switch kind {
	case core.ToolKindAnalyze:
		return nil, nil, nil

	case core.ToolKindCreate:
		mutation, err = p.createMutation(projectID, inv, out)

	case core.ToolKindEdit, core.ToolKindRepair:
		mutation, err = p.updateMutation(ctx, projectID, inv, out)

	case core.ToolKindDelete:
		mutation = &core.SceneMutation{
			ProjectID: projectID,
			SceneID:   inv.TargetID,
			Operation: core.OpDelete,
			Tool:      inv.Tool,
		}

	default:
		err = core.ErrValidation(core.CodeUnknownTool, fmt.Sprintf("unhandled tool kind %s", kind))
	}
	if err != nil {
		return nil, nil, err
	}

	snap, err := p.store.Apply(ctx, mutation)
	if err != nil {
		return nil, nil, err
	}

	p.logger.WithProject(string(projectID)).WithScene(string(mutation.SceneID)).Info("scene mutated",
		"operation", string(mutation.Operation),
		"tool", string(inv.Tool),
		"duration_source", string(mutation.DurationSource),
		"duration_confidence", string(mutation.DurationConfidence),
	)
	p.bus.Publish(events.NewSceneMutatedEvent(
		string(projectID), string(mutation.SceneID), string(mutation.Operation),
		string(inv.Tool), mutation.NewDuration.Frames))

	return mutation, snap, nil
}

func (p *ResultProcessor) createMutation(projectID core.ProjectID, inv core.ToolInvocation, out *core.ToolOutput) (*core.SceneMutation, error) {
	code := llm.StripCodeFences(out.Code)
	if strings.TrimSpace(code) == "" {
		return nil, core.ErrToolExecution(core.CodeEmptyToolOutput,
			fmt.Sprintf("tool %s returned no code", inv.Tool))
	}

	duration, source, confidence := InferDuration(code, out.Frames)

	name := strings.TrimSpace(out.Name)
	if name == "" {
		name = "Untitled scene"
	}

	return &core.SceneMutation{
		ProjectID:          projectID,
		SceneID:            core.SceneID(uuid.New().String()),
		Operation:          core.OpCreate,
		NewCode:            code,
		NewDuration:        duration,
		Name:               name,
		Tool:               inv.Tool,
		DurationSource:     source,
		DurationConfidence: confidence,
	}, nil
}

func (p *ResultProcessor) updateMutation(ctx context.Context, projectID core.ProjectID, inv core.ToolInvocation, out *core.ToolOutput) (*core.SceneMutation, error) {
	code := llm.StripCodeFences(out.Code)
	if strings.TrimSpace(code) == "" {
		return nil, core.ErrToolExecution(core.CodeEmptyToolOutput,
			fmt.Sprintf("tool %s returned no code", inv.Tool))
	}

	mutation := &core.SceneMutation{
		ProjectID: projectID,
		SceneID:   inv.TargetID,
		Operation: core.OpUpdate,
		NewCode:   code,
		Name:      strings.TrimSpace(out.Name),
		Tool:      inv.Tool,
	}

	duration, source, confidence := InferDuration(code, out.Frames)
	if source == core.DurationFromDefault {
		// No timing markers in the edited code: the scene keeps the
		// duration it already had.
		mutation.DurationSource = core.DurationUnchanged
		mutation.DurationConfidence = core.ConfidenceHigh
		return mutation, nil
	}

	// An unchanged timing footprint also keeps the previous duration; only
	// report an inferred change when the markers actually moved it.
	snap, err := p.store.Snapshot(ctx, projectID)
	if err == nil {
		if existing, ok := snap.Find(inv.TargetID); ok && existing.Duration.Frames == duration.Frames {
			mutation.DurationSource = core.DurationUnchanged
			mutation.DurationConfidence = core.ConfidenceHigh
			return mutation, nil
		}
	}

	mutation.NewDuration = duration
	mutation.DurationSource = source
	mutation.DurationConfidence = confidence
	return mutation, nil
}
