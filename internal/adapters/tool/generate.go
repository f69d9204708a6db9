package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/davidrioja/reelforge/internal/adapters/llm"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

// sceneSystemPrompt frames every code-producing tool call. Scenes are
// self-contained React components rendered by the player sandbox.
const sceneSystemPrompt = `You write short video scenes as single React components.
Rules:
- Respond with the component source only. No prose, no explanation.
- Exactly one default export.
- Use AbsoluteFill as the root element and useCurrentFrame/interpolate for animation.
- Only import from 'react' and 'remotion'. Never import node modules like fs or path.
- Keep the component self-contained: inline styles, no external assets unless given a URL.`

var componentNameRe = regexp.MustCompile(`export\s+default\s+function\s+([A-Za-z][A-Za-z0-9_]*)`)

// generateAdapter creates a new scene from a text description.
type generateAdapter struct {
	client core.ChatClient
	logger *logging.Logger
}

func newGenerateAdapter(client core.ChatClient, logger *logging.Logger) *generateAdapter {
	return &generateAdapter{client: client, logger: logger}
}

func (a *generateAdapter) Name() core.ToolName { return core.ToolGenerateScene }
func (a *generateAdapter) Kind() core.ToolKind { return core.ToolKindCreate }

func (a *generateAdapter) Invoke(ctx context.Context, input core.ToolInput) (*core.ToolOutput, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a scene: %s\n", input.Prompt)
	if input.TargetFrames > 0 {
		fmt.Fprintf(&b, "The scene must last exactly %d frames at %d fps; drive the animation with interpolate(frame, [0, %d], ...).\n",
			input.TargetFrames, core.DefaultFPS, input.TargetFrames)
	}
	if input.ImageFacts != "" {
		fmt.Fprintf(&b, "Visual facts about the attached image:\n%s\n", input.ImageFacts)
	}

	code, resp, err := completeCode(ctx, a.client, b.String())
	if err != nil {
		return nil, err
	}
	return &core.ToolOutput{
		Code:      code,
		Name:      sceneNameFrom(code, input.Prompt),
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	}, nil
}

// completeCode runs one code-producing completion and strips the fence
// wrapper. It rejects empty output; semantic problems in the code are the
// compiler's to find, not the adapter's.
func completeCode(ctx context.Context, client core.ChatClient, userPrompt string) (string, *core.ChatResponse, error) {
	resp, err := client.Complete(ctx, core.ChatRequest{
		Messages: []core.ChatMessage{
			{Role: "system", Content: sceneSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", nil, err
	}
	code := llm.StripCodeFences(resp.Content)
	if code == "" {
		return "", nil, core.ErrToolExecution(core.CodeEmptyToolOutput, "model returned no scene code")
	}
	return code, resp, nil
}

// sceneNameFrom derives a display name from the component identifier,
// splitting CamelCase into words. Falls back to the request text.
func sceneNameFrom(code, prompt string) string {
	if m := componentNameRe.FindStringSubmatch(code); m != nil {
		return camelToWords(m[1])
	}
	prompt = strings.TrimSpace(prompt)
	if len(prompt) > 48 {
		prompt = strings.TrimSpace(prompt[:48])
	}
	return prompt
}

func camelToWords(ident string) string {
	var b strings.Builder
	for i, r := range ident {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
