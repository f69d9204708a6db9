package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

// fixAdapter repairs a broken scene from its literal compile error and the
// exact broken source.
type fixAdapter struct {
	client core.ChatClient
	logger *logging.Logger
}

func newFixAdapter(client core.ChatClient, logger *logging.Logger) *fixAdapter {
	return &fixAdapter{client: client, logger: logger}
}

func (a *fixAdapter) Name() core.ToolName { return core.ToolFixBrokenScene }
func (a *fixAdapter) Kind() core.ToolKind { return core.ToolKindRepair }

func (a *fixAdapter) Invoke(ctx context.Context, input core.ToolInput) (*core.ToolOutput, error) {
	if strings.TrimSpace(input.SceneCode) == "" {
		return nil, core.ErrValidation("SCENE_CODE_REQUIRED", "repair needs the broken scene's code")
	}
	if strings.TrimSpace(input.ErrorMessage) == "" {
		return nil, core.ErrValidation("ERROR_TEXT_REQUIRED", "repair needs the compile error text")
	}

	var b strings.Builder
	b.WriteString("This scene fails to compile. Fix the error and change nothing else.\n")
	fmt.Fprintf(&b, "Compile error: %s\n", input.ErrorMessage)
	if input.SceneName != "" {
		fmt.Fprintf(&b, "Scene name: %s\n", input.SceneName)
	}
	fmt.Fprintf(&b, "Broken code:\n```tsx\n%s\n```\n", input.SceneCode)

	code, resp, err := completeCode(ctx, a.client, b.String())
	if err != nil {
		return nil, err
	}
	return &core.ToolOutput{
		Code:      code,
		Reasoning: fmt.Sprintf("repaired compile error: %s", firstLine(input.ErrorMessage)),
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
