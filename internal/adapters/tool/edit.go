package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

// editAdapter rewrites an existing scene. The same adapter backs plain
// edits and image-guided edits; the latter carries analyzed image facts in
// its input.
type editAdapter struct {
	name   core.ToolName
	client core.ChatClient
	logger *logging.Logger
}

func newEditAdapter(name core.ToolName, client core.ChatClient, logger *logging.Logger) *editAdapter {
	return &editAdapter{name: name, client: client, logger: logger}
}

func (a *editAdapter) Name() core.ToolName { return a.name }
func (a *editAdapter) Kind() core.ToolKind { return core.ToolKindEdit }

func (a *editAdapter) Invoke(ctx context.Context, input core.ToolInput) (*core.ToolOutput, error) {
	if strings.TrimSpace(input.SceneCode) == "" {
		return nil, core.ErrValidation("SCENE_CODE_REQUIRED", "edit needs the scene's current code")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite this scene. Change: %s\n", input.Prompt)
	if input.ImageFacts != "" {
		fmt.Fprintf(&b, "Match these visual facts from the attached image:\n%s\n", input.ImageFacts)
	}
	b.WriteString("Keep everything not mentioned in the change untouched, including the animation timing.\n")
	fmt.Fprintf(&b, "Current code:\n```tsx\n%s\n```\n", input.SceneCode)

	code, resp, err := completeCode(ctx, a.client, b.String())
	if err != nil {
		return nil, err
	}
	return &core.ToolOutput{
		Code:      code,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	}, nil
}
