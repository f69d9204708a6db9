package core

import "fmt"

// DecisionMode is the shape of an intent decision.
type DecisionMode string

const (
	// DecisionTool routes the request to a single tool invocation.
	DecisionTool DecisionMode = "tool"
	// DecisionWorkflow routes the request to a multi-step plan.
	DecisionWorkflow DecisionMode = "workflow"
	// DecisionClarify returns a question; no mutation occurs.
	DecisionClarify DecisionMode = "clarify"
	// DecisionUnsupported signals that no tool confidently fits and no
	// useful clarification can be formed. Never a guessed invocation.
	DecisionUnsupported DecisionMode = "unsupported"
)

// Decision is the intent analyzer's output: exactly one of a single
// invocation, a workflow plan, a clarification question, or an explicit
// unsupported signal.
type Decision struct {
	Mode          DecisionMode    `json:"mode"`
	Invocation    *ToolInvocation `json:"invocation,omitempty"`
	Plan          *WorkflowPlan   `json:"plan,omitempty"`
	Clarification string          `json:"clarification,omitempty"`
	Reasoning     string          `json:"reasoning,omitempty"`
}

// Validate checks the decision's internal shape and, for executable modes,
// the invocation or plan against the supplied snapshot.
func (d *Decision) Validate(snap *SceneSnapshot) error {
	switch d.Mode {
	case DecisionTool:
		if d.Invocation == nil {
			return ErrValidation("DECISION_MISSING_INVOCATION", "tool decision carries no invocation")
		}
		return d.Invocation.Validate(snap)
	case DecisionWorkflow:
		if d.Plan == nil {
			return ErrValidation("DECISION_MISSING_PLAN", "workflow decision carries no plan")
		}
		return d.Plan.Validate(snap)
	case DecisionClarify:
		if d.Clarification == "" {
			return ErrValidation("DECISION_MISSING_QUESTION", "clarify decision carries no question")
		}
		return nil
	case DecisionUnsupported:
		return nil
	default:
		return ErrValidation("DECISION_UNKNOWN_MODE", fmt.Sprintf("unknown decision mode: %s", d.Mode))
	}
}
