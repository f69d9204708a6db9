package tool

import (
	"context"

	"github.com/davidrioja/reelforge/internal/core"
)

// deleteAdapter removes a scene. The mutation itself happens downstream;
// the adapter only confirms the operation, so it has nothing to generate.
type deleteAdapter struct{}

func newDeleteAdapter() *deleteAdapter { return &deleteAdapter{} }

func (a *deleteAdapter) Name() core.ToolName { return core.ToolDeleteScene }
func (a *deleteAdapter) Kind() core.ToolKind { return core.ToolKindDelete }

func (a *deleteAdapter) Invoke(_ context.Context, _ core.ToolInput) (*core.ToolOutput, error) {
	return &core.ToolOutput{}, nil
}
