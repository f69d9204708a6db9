// Package intent maps a natural-language request plus the current scene
// snapshot to exactly one of: a single tool invocation, a multi-step
// workflow plan, a clarification question, or an explicit unsupported
// signal. A tool is never guessed.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/davidrioja/reelforge/internal/adapters/llm"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

const defaultHistoryLimit = 12

// Analyzer decides how a request is routed. The snapshot is passed in
// explicitly on every call; the analyzer holds no scene state of its own.
type Analyzer struct {
	client       core.ChatClient
	history      core.HistoryStore
	logger       *logging.Logger
	historyLimit int
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithHistoryLimit bounds how many conversation turns feed the prompt.
func WithHistoryLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.historyLimit = n
		}
	}
}

// NewAnalyzer creates an analyzer. The history store may be nil, in which
// case decisions are made from the request and snapshot alone.
func NewAnalyzer(client core.ChatClient, history core.HistoryStore, logger *logging.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:       client,
		history:      history,
		logger:       logger,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request is one user request to route.
type Request struct {
	ProjectID core.ProjectID
	Prompt    string
	ImageURLs []string
	Brand     *core.BrandContext
}

// decisionDoc is the JSON document the model must produce.
type decisionDoc struct {
	Mode          string `json:"mode"`
	Reasoning     string `json:"reasoning"`
	Clarification string `json:"clarification"`
	Tool          *struct {
		Name          string `json:"name"`
		TargetSceneID string `json:"target_scene_id"`
		Prompt        string `json:"prompt"`
		TargetFrames  int    `json:"target_frames"`
	} `json:"tool"`
	Steps []struct {
		Name            string `json:"name"`
		TargetSceneID   string `json:"target_scene_id"`
		UseCreatedScene *int   `json:"use_created_scene"`
		Prompt          string `json:"prompt"`
	} `json:"steps"`
}

// Decide maps the request to a decision validated against the snapshot.
func (a *Analyzer) Decide(ctx context.Context, req Request, snap *core.SceneSnapshot) (*core.Decision, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, core.ErrValidation("EMPTY_REQUEST", "request prompt is empty")
	}

	var history []*core.Message
	if a.history != nil {
		var err error
		history, err = a.history.Recent(ctx, req.ProjectID, a.historyLimit)
		if err != nil {
			a.logger.Warn("loading conversation history failed", "error", err)
		}
	}

	params := promptParams{
		Prompt:    req.Prompt,
		Tools:     toolSummaries(),
		Scenes:    sceneSummaries(snap),
		History:   history,
		ImageURLs: req.ImageURLs,
	}
	if req.Brand != nil {
		params.BrandTitle = req.Brand.Title
		if params.BrandTitle == "" {
			params.BrandTitle = req.Brand.URL
		}
	}

	userPrompt, err := renderDecisionPrompt(params)
	if err != nil {
		return nil, err
	}

	zero := 0.0
	resp, err := a.client.Complete(ctx, core.ChatRequest{
		Messages: []core.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: &zero,
	})
	if err != nil {
		return nil, err
	}

	decision, err := a.decisionFrom(resp.Content, req, snap)
	if err != nil {
		if !degradesToClarification(err) {
			return nil, err
		}
		// An unusable decision document never turns into a fabricated
		// invocation; the user gets a question instead.
		a.logger.WithProject(string(req.ProjectID)).Warn(
			"unusable decision document, asking for clarification", "error", err)
		return &core.Decision{
			Mode:          core.DecisionClarify,
			Clarification: "I couldn't map that request to an action. Could you rephrase what you want to change?",
		}, nil
	}

	a.logger.WithProject(string(req.ProjectID)).Debug("intent decided",
		"mode", string(decision.Mode), "reasoning", decision.Reasoning)
	return decision, nil
}

func (a *Analyzer) decisionFrom(content string, req Request, snap *core.SceneSnapshot) (*core.Decision, error) {
	doc, err := parseDecision(content)
	if err != nil {
		return nil, err
	}
	decision, err := a.resolve(doc, req, snap)
	if err != nil {
		return nil, err
	}
	if err := decision.Validate(snap); err != nil {
		return nil, err
	}
	return decision, nil
}

// degradesToClarification reports whether the error stems from the model
// producing an unusable document (malformed JSON, unknown mode, a tool
// outside the enumeration) rather than from the request's own content.
func degradesToClarification(err error) bool {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		return false
	}
	return domErr.Code == core.CodeDecisionParse || domErr.Code == core.CodeUnknownTool
}

func parseDecision(content string) (*decisionDoc, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, core.ErrToolExecution(core.CodeDecisionParse, "model response contains no decision document")
	}
	var doc decisionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, core.ErrToolExecution(core.CodeDecisionParse, "malformed decision document").WithCause(err)
	}
	return &doc, nil
}

// resolve turns the raw decision document into a validated domain decision,
// applying target tie-break rules against the current snapshot.
func (a *Analyzer) resolve(doc *decisionDoc, req Request, snap *core.SceneSnapshot) (*core.Decision, error) {
	switch doc.Mode {
	case "clarify":
		question := strings.TrimSpace(doc.Clarification)
		if question == "" {
			question = "Could you describe more precisely what you want to change?"
		}
		return &core.Decision{Mode: core.DecisionClarify, Clarification: question, Reasoning: doc.Reasoning}, nil

	case "unsupported":
		return &core.Decision{Mode: core.DecisionUnsupported, Reasoning: doc.Reasoning}, nil

	case "tool":
		if doc.Tool == nil {
			return nil, core.ErrToolExecution(core.CodeDecisionParse, "tool decision names no tool")
		}
		inv := core.ToolInvocation{
			Tool:     core.ToolName(doc.Tool.Name),
			TargetID: core.SceneID(doc.Tool.TargetSceneID),
			Input: core.ToolInput{
				Prompt:       doc.Tool.Prompt,
				ImageURLs:    req.ImageURLs,
				Brand:        req.Brand,
				TargetFrames: doc.Tool.TargetFrames,
			},
			Reasoning: doc.Reasoning,
		}
		return a.bindTarget(inv, doc.Reasoning, snap)

	case "workflow":
		if len(doc.Steps) == 0 {
			return nil, core.ErrToolExecution(core.CodeDecisionParse, "workflow decision has no steps")
		}
		plan := &core.WorkflowPlan{Reasoning: doc.Reasoning}
		for _, raw := range doc.Steps {
			inv := core.ToolInvocation{
				Tool:     core.ToolName(raw.Name),
				TargetID: core.SceneID(raw.TargetSceneID),
				Input: core.ToolInput{
					Prompt:    raw.Prompt,
					ImageURLs: req.ImageURLs,
					Brand:     req.Brand,
				},
			}
			step := core.NewPlanStep(inv)
			if raw.UseCreatedScene != nil && *raw.UseCreatedScene >= 0 {
				step = core.DependsOnStep(inv, *raw.UseCreatedScene)
			}
			plan.Steps = append(plan.Steps, step)
		}
		return &core.Decision{Mode: core.DecisionWorkflow, Plan: plan, Reasoning: doc.Reasoning}, nil

	default:
		return nil, core.ErrToolExecution(core.CodeDecisionParse,
			fmt.Sprintf("unknown decision mode %q", doc.Mode))
	}
}

// bindTarget resolves a missing target scene id for tools that need one.
// A repair request binds to the single broken scene when exactly one scene
// is broken; with several broken scenes the user must disambiguate. Other
// targeted tools bind only when the project has exactly one scene.
func (a *Analyzer) bindTarget(inv core.ToolInvocation, reasoning string, snap *core.SceneSnapshot) (*core.Decision, error) {
	if !core.RequiresTarget(inv.Tool) || inv.TargetID != "" {
		return &core.Decision{Mode: core.DecisionTool, Invocation: &inv, Reasoning: reasoning}, nil
	}

	if inv.Tool == core.ToolFixBrokenScene {
		broken := snap.Broken()
		switch len(broken) {
		case 0:
			return nil, core.ErrState("NO_BROKEN_SCENES", "no scene is currently broken")
		case 1:
			inv.TargetID = broken[0].ID
			inv.Input.SceneName = broken[0].Meta.Name
			inv.Input.SceneCode = broken[0].Code
			inv.Input.ErrorMessage = broken[0].Error
			return &core.Decision{Mode: core.DecisionTool, Invocation: &inv, Reasoning: reasoning}, nil
		default:
			return &core.Decision{
				Mode:          core.DecisionClarify,
				Clarification: disambiguationQuestion(broken),
				Reasoning:     reasoning,
			}, nil
		}
	}

	if len(snap.Scenes) == 1 {
		inv.TargetID = snap.Scenes[0].ID
		return &core.Decision{Mode: core.DecisionTool, Invocation: &inv, Reasoning: reasoning}, nil
	}
	return &core.Decision{
		Mode:          core.DecisionClarify,
		Clarification: "Which scene should this change apply to?",
		Reasoning:     reasoning,
	}, nil
}

func disambiguationQuestion(broken []*core.SceneEntity) string {
	var b strings.Builder
	b.WriteString("Several scenes are broken. Which one should be repaired?")
	for _, s := range broken {
		name := s.Meta.Name
		if name == "" {
			name = string(s.ID)
		}
		fmt.Fprintf(&b, " %q (scene %d);", name, s.Order+1)
	}
	return strings.TrimSuffix(b.String(), ";")
}
