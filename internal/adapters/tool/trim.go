package tool

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

var (
	secondsRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:s\b|sec\b|secs\b|seconds?\b)`)
	framesRe  = regexp.MustCompile(`(\d+)\s*frames?\b`)
)

// trimAdapter changes a scene's duration without touching its content. It
// is fully deterministic: the target length comes from the invocation, not
// from a model.
type trimAdapter struct {
	logger *logging.Logger
}

func newTrimAdapter(logger *logging.Logger) *trimAdapter {
	return &trimAdapter{logger: logger}
}

func (a *trimAdapter) Name() core.ToolName { return core.ToolTrimScene }
func (a *trimAdapter) Kind() core.ToolKind { return core.ToolKindEdit }

func (a *trimAdapter) Invoke(_ context.Context, input core.ToolInput) (*core.ToolOutput, error) {
	if strings.TrimSpace(input.SceneCode) == "" {
		return nil, core.ErrValidation("SCENE_CODE_REQUIRED", "trim needs the scene's current code")
	}

	frames := input.TargetFrames
	if frames <= 0 {
		frames = parseLength(input.Prompt)
	}
	if frames <= 0 {
		return nil, core.ErrValidation("TARGET_LENGTH_REQUIRED",
			"trim needs a target length, e.g. \"2 seconds\" or \"90 frames\"")
	}

	return &core.ToolOutput{
		Code:   input.SceneCode,
		Frames: frames,
	}, nil
}

// parseLength reads a frame count or a seconds value out of the request
// text. Frames win when both appear.
func parseLength(prompt string) int {
	prompt = strings.ToLower(prompt)
	if m := framesRe.FindStringSubmatch(prompt); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := secondsRe.FindStringSubmatch(prompt); m != nil {
		secs, _ := strconv.ParseFloat(m[1], 64)
		return int(secs * float64(core.DefaultFPS))
	}
	return 0
}
