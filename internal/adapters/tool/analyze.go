package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

const analyzeSystemPrompt = `You describe images for a video scene generator.
List the concrete visual facts: subjects, dominant colors as hex values where
possible, composition, text content, and overall style. Plain text, one fact
per line. Do not invent details you cannot see.`

// analyzeAdapter extracts visual facts from attached images. It mutates no
// scene; its output feeds later generation or edit steps.
type analyzeAdapter struct {
	client core.ChatClient
	logger *logging.Logger
}

func newAnalyzeAdapter(client core.ChatClient, logger *logging.Logger) *analyzeAdapter {
	return &analyzeAdapter{client: client, logger: logger}
}

func (a *analyzeAdapter) Name() core.ToolName { return core.ToolAnalyzeImage }
func (a *analyzeAdapter) Kind() core.ToolKind { return core.ToolKindAnalyze }

func (a *analyzeAdapter) Invoke(ctx context.Context, input core.ToolInput) (*core.ToolOutput, error) {
	if len(input.ImageURLs) == 0 {
		return nil, core.ErrValidation("IMAGE_REQUIRED", "image analysis needs at least one image URL")
	}

	var b strings.Builder
	if input.Prompt != "" {
		fmt.Fprintf(&b, "Focus: %s\n", input.Prompt)
	}
	b.WriteString("Images:\n")
	for _, url := range input.ImageURLs {
		fmt.Fprintf(&b, "- %s\n", url)
	}

	resp, err := a.client.Complete(ctx, core.ChatRequest{
		Messages: []core.ChatMessage{
			{Role: "system", Content: analyzeSystemPrompt},
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		return nil, err
	}
	facts := strings.TrimSpace(resp.Content)
	if facts == "" {
		return nil, core.ErrToolExecution(core.CodeEmptyToolOutput, "model returned no image facts")
	}
	return &core.ToolOutput{
		Facts:     facts,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	}, nil
}
