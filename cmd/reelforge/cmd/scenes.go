package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidrioja/reelforge/internal/core"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "List the project's scenes in timeline order",
	RunE:  runScenes,
}

func init() {
	rootCmd.AddCommand(scenesCmd)
}

func runScenes(cmd *cobra.Command, _ []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	snap, err := eng.store.Snapshot(cmd.Context(), core.ProjectID(projectID))
	if err != nil {
		return err
	}
	if len(snap.Scenes) == 0 {
		fmt.Printf("project %s has no scenes\n", projectID)
		return nil
	}

	fmt.Printf("project %s (version %d)\n", snap.ProjectID, snap.Version)
	for _, sc := range snap.Scenes {
		line := fmt.Sprintf("  %2d. %-14s %-8s %4d frames", sc.Order, sc.ID, sc.Status, sc.Duration.Frames)
		if sc.Meta.Name != "" {
			line += "  " + sc.Meta.Name
		}
		if sc.Error != "" {
			line += "  [" + sc.Error + "]"
		}
		fmt.Println(line)
	}
	return nil
}
