package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

// brandAdapter generates a scene from evidence-tagged brand content. The
// prompt carries only verbatim extracted text, so the scene cannot claim
// anything the source page does not.
type brandAdapter struct {
	client core.ChatClient
	logger *logging.Logger
}

func newBrandAdapter(client core.ChatClient, logger *logging.Logger) *brandAdapter {
	return &brandAdapter{client: client, logger: logger}
}

func (a *brandAdapter) Name() core.ToolName { return core.ToolGenerateFromBrand }
func (a *brandAdapter) Kind() core.ToolKind { return core.ToolKindCreate }

func (a *brandAdapter) Invoke(ctx context.Context, input core.ToolInput) (*core.ToolOutput, error) {
	if input.Brand == nil {
		return nil, core.ErrValidation("BRAND_REQUIRED", "brand generation needs extracted brand content")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a scene for %s: %s\n", input.Brand.URL, input.Prompt)
	b.WriteString("Use ONLY the extracted content below. Quote text verbatim; never invent claims.\n")
	if len(input.Brand.Palette) > 0 {
		fmt.Fprintf(&b, "Brand palette (most prominent first): %s\n", strings.Join(input.Brand.Palette, ", "))
	}
	for _, section := range input.Brand.Sections {
		if section.Heading != "" {
			fmt.Fprintf(&b, "## %s\n", section.Heading)
		}
		fmt.Fprintf(&b, "%s\n(source: %s)\n", section.Text, section.Evidence.SourceURL)
	}

	code, resp, err := completeCode(ctx, a.client, b.String())
	if err != nil {
		return nil, err
	}
	return &core.ToolOutput{
		Code:      code,
		Name:      sceneNameFrom(code, input.Brand.Title),
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	}, nil
}
