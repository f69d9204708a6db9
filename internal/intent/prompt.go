package intent

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/davidrioja/reelforge/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

var decisionTemplate = template.Must(
	template.New("decision.md.tmpl").ParseFS(promptsFS, "prompts/decision.md.tmpl"))

// systemPrompt frames the model's job for every decision call.
const systemPrompt = `You are the intent router of a video scene editor. ` +
	`Scenes are short React components; tools create, edit, trim, delete and repair them. ` +
	`You only decide which tool to run, you never write scene code yourself.`

type toolSummary struct {
	Name        core.ToolName
	Kind        core.ToolKind
	NeedsTarget bool
	Description string
}

type sceneSummary struct {
	ID     core.SceneID
	Order  int
	Name   string
	Status core.SceneStatus
	Frames int
}

type promptParams struct {
	Prompt     string
	Tools      []toolSummary
	Scenes     []sceneSummary
	History    []*core.Message
	ImageURLs  []string
	BrandTitle string
}

var toolDescriptions = map[core.ToolName]string{
	core.ToolGenerateScene:      "generate a brand new scene from a text description",
	core.ToolEditScene:          "change an existing scene's content or style",
	core.ToolDeleteScene:        "remove a scene from the project",
	core.ToolTrimScene:          "change a scene's duration without altering its content",
	core.ToolFixBrokenScene:     "repair a scene whose code fails to compile",
	core.ToolAnalyzeImage:       "describe an attached image; produces facts, mutates nothing",
	core.ToolEditSceneWithImage: "edit an existing scene to match an attached image",
	core.ToolGenerateFromBrand:  "generate a new scene from extracted brand/website content",
}

func toolSummaries() []toolSummary {
	tools := make([]toolSummary, 0, len(core.AllTools()))
	for _, name := range core.AllTools() {
		kind, _ := core.KindOf(name)
		tools = append(tools, toolSummary{
			Name:        name,
			Kind:        kind,
			NeedsTarget: core.RequiresTarget(name),
			Description: toolDescriptions[name],
		})
	}
	return tools
}

func sceneSummaries(snap *core.SceneSnapshot) []sceneSummary {
	scenes := make([]sceneSummary, 0, len(snap.Scenes))
	for _, s := range snap.Scenes {
		scenes = append(scenes, sceneSummary{
			ID:     s.ID,
			Order:  s.Order,
			Name:   s.Meta.Name,
			Status: s.Status,
			Frames: s.Duration.Frames,
		})
	}
	return scenes
}

func renderDecisionPrompt(params promptParams) (string, error) {
	var buf bytes.Buffer
	if err := decisionTemplate.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("rendering decision prompt: %w", err)
	}
	return buf.String(), nil
}
