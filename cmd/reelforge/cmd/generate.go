package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidrioja/reelforge/internal/compile"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/intent"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Run one request against the project's scene list",
	Long: `Run a single natural-language request end to end: decide the tool,
execute the workflow, recompile the timeline, and print the result.

Examples:
  reelforge generate "an intro scene with a rising sun"
  reelforge generate "make the second scene shorter" --project demo
  reelforge generate "a hero scene for this company" --brand-url https://acme.example`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var (
	generateBrandURL string
	generateExport   bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateBrandURL, "brand-url", "",
		"extract brand context from this URL before generating")
	generateCmd.Flags().BoolVar(&generateExport, "export", false,
		"write the timeline manifest after the request")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cmd.Context()
	req := intent.Request{
		ProjectID: core.ProjectID(projectID),
		Prompt:    strings.Join(args, " "),
	}

	if generateBrandURL != "" {
		brandCtx, err := eng.extractor.Extract(ctx, generateBrandURL)
		if err != nil {
			return err
		}
		req.Brand = brandCtx
		fmt.Printf("Brand: %s (%d sections, palette %v)\n",
			brandCtx.Title, len(brandCtx.Sections), brandCtx.Palette)
	}

	outcome, err := eng.coordinator.HandleRequest(ctx, req)
	if err != nil {
		return err
	}

	if outcome.Clarification != "" {
		fmt.Printf("Clarification needed: %s\n", outcome.Clarification)
		return nil
	}
	if outcome.Decision.Mode == core.DecisionUnsupported {
		fmt.Printf("Not supported: %s\n", outcome.Decision.Reasoning)
		return nil
	}

	for _, step := range outcome.Steps {
		detail := string(step.SceneID)
		if step.Error != "" {
			detail = step.Error
		}
		fmt.Printf("  [%d] %-20s %-9s %s\n", step.Index, step.Tool, step.Status, detail)
	}
	if outcome.Timeline != nil {
		fmt.Printf("Timeline: %d scenes, %d frames (%.1fs), %d placeholder(s)\n",
			len(outcome.Timeline.Entries), outcome.Timeline.TotalFrames,
			float64(outcome.Timeline.TotalFrames)/float64(outcome.Timeline.FPS),
			outcome.Timeline.BrokenCount())

		if generateExport {
			path, err := compile.ExportManifest(outcome.Timeline, eng.cfg.Compile.ExportDir)
			if err != nil {
				return err
			}
			fmt.Printf("Manifest: %s\n", path)
		}
	}
	return nil
}
